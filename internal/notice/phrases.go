package notice

import "strings"

var statements = map[string]string{
	"age":                      "Limited length of credit experience associated with applicant age",
	"credit_amount":            "Requested credit amount is high relative to your profile",
	"duration":                 "Requested repayment term is long",
	"installment_rate":         "Installment payments are high relative to disposable income",
	"num_dependents":           "Number of dependents relative to household income",
	"years_at_current_address": "Length of time at current address",
	"years_employed":           "Length of time with current employer",
	"annual_income":            "Income is insufficient for the amount of credit requested",
	"existing_credits":         "Number of existing credit obligations",
	"credit_score":             "Credit bureau score",
	"num_credit_inquiries_6m":  "Number of recent credit inquiries",
	"num_late_payments_2y":     "Late payments in the last two years",
	"delinquencies_2y":         "Delinquent accounts in the last two years",
	"public_records":           "Derogatory public records",
	"years_with_bank":          "Length of banking relationship",
	"checking_account_status":  "Checking account balance",
	"savings_account_status":   "Insufficient savings",
	"credit_history":           "Past credit repayment history",
	"employment_status":        "Employment status",
	"loan_purpose":             "Purpose of the loan",
	"housing_status":           "Housing situation",
	"marital_status":           "Household composition",
	"education_level":          "Education level",
	"has_co_applicant":         "No co-applicant or guarantor",
	"is_foreign_worker":        "Length of residence and work history",
	"bankruptcy_history":       "Bankruptcy on record",
	"has_telephone":            "Unable to verify contact information",
	"debt_to_income":           "Debt obligations are high relative to income",
	"loan_to_value":            "Loan amount is high relative to collateral value",
	"monthly_burden":           "Estimated monthly payment burden is high",
	"credit_utilization":       "Revolving credit utilization is high",
}

var suggestions = map[string]string{
	"credit_amount":           "Consider requesting a lower credit amount.",
	"duration":                "Consider a shorter loan term to reduce repayment risk.",
	"installment_rate":        "Lower the installment rate relative to your disposable income.",
	"annual_income":           "Document additional or co-applicant income.",
	"existing_credits":        "Consolidate or close unused credit accounts.",
	"credit_score":            "Improve your credit score by paying all bills on time.",
	"num_credit_inquiries_6m": "Avoid new credit applications for the next six months.",
	"num_late_payments_2y":    "Keep all accounts current; late payments age off over time.",
	"delinquencies_2y":        "Bring delinquent accounts current before reapplying.",
	"checking_account_status": "Maintain a positive checking account balance.",
	"savings_account_status":  "Build a savings buffer before reapplying.",
	"credit_history":          "Build a record of on-time repayments.",
	"has_co_applicant":        "Consider applying with a co-applicant or guarantor.",
	"debt_to_income":          "Reduce existing debt obligations to lower your debt-to-income ratio.",
	"loan_to_value":           "Increase your down payment to lower the loan-to-value ratio.",
	"monthly_burden":          "Adjust the amount or term to lower the monthly payment.",
	"credit_utilization":      "Pay down revolving balances to below 30% of your limits.",
}

// Statement returns the notice wording for a feature.
func Statement(feature string) string {
	if s, ok := statements[feature]; ok {
		return s
	}
	return Label(feature)
}

// Label turns a feature name into a display label.
func Label(feature string) string {
	words := strings.Split(feature, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
