package application

import "slices"

// Kind describes how a field's value is represented.
type Kind string

const (
	KindNumber   Kind = "number"
	KindInteger  Kind = "integer"
	KindCategory Kind = "category"
	KindFlag     Kind = "boolean"
)

// Section groups fields the way a lender's application form does.
type Section string

const (
	SectionPersonal   Section = "Personal Information"
	SectionEmployment Section = "Employment & Income"
	SectionLoan       Section = "Loan Details"
	SectionFinancial  Section = "Financial Profile"
	SectionDebt       Section = "Debt Information"
	SectionBureau     Section = "Credit Score"
	SectionAssets     Section = "Assets & Collateral"
	SectionBanking    Section = "Banking Relationship"
	SectionRisk       Section = "Additional Risk Factors"
)

// Field is the closed enumeration of accepted application fields.
type Field string

const (
	FieldAge                   Field = "age"
	FieldMaritalStatus         Field = "marital_status"
	FieldNumDependents         Field = "num_dependents"
	FieldEducationLevel        Field = "education_level"
	FieldYearsAtAddress        Field = "years_at_current_address"
	FieldEmploymentStatus      Field = "employment_status"
	FieldYearsEmployed         Field = "years_employed"
	FieldAnnualIncome          Field = "annual_income"
	FieldMonthlyIncome         Field = "monthly_income"
	FieldOtherIncome           Field = "other_income"
	FieldCreditAmount          Field = "credit_amount"
	FieldDuration              Field = "duration"
	FieldLoanPurpose           Field = "loan_purpose"
	FieldInstallmentRate       Field = "installment_rate"
	FieldInterestRateRequested Field = "interest_rate_requested"
	FieldCheckingStatus        Field = "checking_account_status"
	FieldSavingsStatus         Field = "savings_account_status"
	FieldExistingCredits       Field = "existing_credits"
	FieldCreditHistory         Field = "credit_history"
	FieldMonthlyDebtPayments   Field = "monthly_debt_payments"
	FieldCreditCardBalance     Field = "credit_card_balance"
	FieldCreditCardLimit       Field = "credit_card_limit"
	FieldAutoLoanBalance       Field = "auto_loan_balance"
	FieldStudentLoanBalance    Field = "student_loan_balance"
	FieldMortgageBalance       Field = "mortgage_balance"
	FieldOtherDebt             Field = "other_debt"
	FieldCreditScore           Field = "credit_score"
	FieldInquiries6m           Field = "num_credit_inquiries_6m"
	FieldLatePayments2y        Field = "num_late_payments_2y"
	FieldDelinquencies2y       Field = "delinquencies_2y"
	FieldPublicRecords         Field = "public_records"
	FieldCollections12m        Field = "collections_12m"
	FieldOldestCreditLineYears Field = "oldest_credit_line_years"
	FieldHousingStatus         Field = "housing_status"
	FieldPropertyValue         Field = "property_value"
	FieldVehicleValue          Field = "vehicle_value"
	FieldInvestmentAccounts    Field = "investment_accounts"
	FieldTotalAssets           Field = "total_assets"
	FieldHasCheckingAccount    Field = "has_checking_account"
	FieldHasSavingsAccount     Field = "has_savings_account"
	FieldYearsWithBank         Field = "years_with_bank"
	FieldHasDirectDeposit      Field = "has_direct_deposit"
	FieldIsForeignWorker       Field = "is_foreign_worker"
	FieldHasTelephone          Field = "has_telephone"
	FieldHasCoApplicant        Field = "has_co_applicant"
	FieldBankruptcyHistory     Field = "bankruptcy_history"
	FieldForeclosureHistory    Field = "foreclosure_history"
)

// Spec declares a field's type, valid range and form section.
type Spec struct {
	Field       Field
	Kind        Kind
	Section     Section
	Min         float64
	Max         float64
	Categories  []string
	Description string
}

// InRange reports whether v lies inside the declared closed range.
func (s Spec) InRange(v float64) bool {
	return v >= s.Min && v <= s.Max
}

// Known category values. Values outside these lists are still accepted and
// land in the encoder's unknown bucket.
var (
	MaritalStatuses    = []string{"single", "married", "divorced", "widowed", "separated", "domestic_partner"}
	EducationLevels    = []string{"high_school", "some_college", "bachelors", "masters", "doctorate", "professional", "trade_school", "other"}
	EmploymentStatuses = []string{"full_time", "part_time", "self_employed", "retired", "unemployed", "student", "contract", "military"}
	LoanPurposes       = []string{"home_purchase", "home_improvement", "auto_purchase", "education", "debt_consolidation", "business", "medical", "personal", "wedding", "vacation", "moving", "major_purchase", "other"}
	CheckingStatuses   = []string{"no_account", "negative", "low", "moderate", "high"}
	SavingsStatuses    = []string{"no_savings", "under_500", "between_500_1000", "between_1000_5000", "over_5000"}
	CreditHistories    = []string{"no_history", "all_paid", "existing_paid", "delayed", "critical"}
	HousingStatuses    = []string{"own", "rent", "mortgage", "living_with_family", "free", "other"}
)

var registry = []Spec{
	{Field: FieldAge, Kind: KindInteger, Section: SectionPersonal, Min: 18, Max: 100, Description: "Applicant's age in years"},
	{Field: FieldMaritalStatus, Kind: KindCategory, Section: SectionPersonal, Categories: MaritalStatuses, Description: "Marital status"},
	{Field: FieldNumDependents, Kind: KindInteger, Section: SectionPersonal, Min: 0, Max: 15, Description: "Number of dependents"},
	{Field: FieldEducationLevel, Kind: KindCategory, Section: SectionPersonal, Categories: EducationLevels, Description: "Highest education level"},
	{Field: FieldYearsAtAddress, Kind: KindInteger, Section: SectionPersonal, Min: 0, Max: 60, Description: "Years at current residential address"},

	{Field: FieldEmploymentStatus, Kind: KindCategory, Section: SectionEmployment, Categories: EmploymentStatuses, Description: "Current employment status"},
	{Field: FieldYearsEmployed, Kind: KindNumber, Section: SectionEmployment, Min: 0, Max: 50, Description: "Years at current employer"},
	{Field: FieldAnnualIncome, Kind: KindNumber, Section: SectionEmployment, Min: 0, Max: 10_000_000, Description: "Gross annual income ($)"},
	{Field: FieldMonthlyIncome, Kind: KindNumber, Section: SectionEmployment, Min: 0, Max: 1_000_000, Description: "Gross monthly income ($); derived from annual income when absent"},
	{Field: FieldOtherIncome, Kind: KindNumber, Section: SectionEmployment, Min: 0, Max: 5_000_000, Description: "Other annual income ($)"},

	{Field: FieldCreditAmount, Kind: KindNumber, Section: SectionLoan, Min: 100, Max: 10_000_000, Description: "Requested loan amount ($)"},
	{Field: FieldDuration, Kind: KindInteger, Section: SectionLoan, Min: 1, Max: 360, Description: "Loan duration in months"},
	{Field: FieldLoanPurpose, Kind: KindCategory, Section: SectionLoan, Categories: LoanPurposes, Description: "Purpose of the loan"},
	{Field: FieldInstallmentRate, Kind: KindInteger, Section: SectionLoan, Min: 1, Max: 10, Description: "Installment rate as % of disposable income"},
	{Field: FieldInterestRateRequested, Kind: KindNumber, Section: SectionLoan, Min: 0, Max: 40, Description: "Requested interest rate (%)"},

	{Field: FieldCheckingStatus, Kind: KindCategory, Section: SectionFinancial, Categories: CheckingStatuses, Description: "Checking account balance status"},
	{Field: FieldSavingsStatus, Kind: KindCategory, Section: SectionFinancial, Categories: SavingsStatuses, Description: "Savings account balance status"},
	{Field: FieldExistingCredits, Kind: KindInteger, Section: SectionFinancial, Min: 0, Max: 20, Description: "Number of existing credit accounts"},
	{Field: FieldCreditHistory, Kind: KindCategory, Section: SectionFinancial, Categories: CreditHistories, Description: "Credit history quality"},

	{Field: FieldMonthlyDebtPayments, Kind: KindNumber, Section: SectionDebt, Min: 0, Max: 500_000, Description: "Total monthly debt payments ($)"},
	{Field: FieldCreditCardBalance, Kind: KindNumber, Section: SectionDebt, Min: 0, Max: 1_000_000, Description: "Outstanding credit card balance ($)"},
	{Field: FieldCreditCardLimit, Kind: KindNumber, Section: SectionDebt, Min: 0, Max: 5_000_000, Description: "Total credit card limit ($)"},
	{Field: FieldAutoLoanBalance, Kind: KindNumber, Section: SectionDebt, Min: 0, Max: 500_000, Description: "Outstanding auto loan balance ($)"},
	{Field: FieldStudentLoanBalance, Kind: KindNumber, Section: SectionDebt, Min: 0, Max: 500_000, Description: "Outstanding student loan balance ($)"},
	{Field: FieldMortgageBalance, Kind: KindNumber, Section: SectionDebt, Min: 0, Max: 5_000_000, Description: "Outstanding mortgage balance ($)"},
	{Field: FieldOtherDebt, Kind: KindNumber, Section: SectionDebt, Min: 0, Max: 1_000_000, Description: "Other outstanding debt ($)"},

	{Field: FieldCreditScore, Kind: KindInteger, Section: SectionBureau, Min: 300, Max: 850, Description: "Bureau credit score (300-850)"},
	{Field: FieldInquiries6m, Kind: KindInteger, Section: SectionBureau, Min: 0, Max: 30, Description: "Hard credit inquiries in the last 6 months"},
	{Field: FieldLatePayments2y, Kind: KindInteger, Section: SectionBureau, Min: 0, Max: 50, Description: "Late payments in the last 2 years"},
	{Field: FieldDelinquencies2y, Kind: KindInteger, Section: SectionBureau, Min: 0, Max: 30, Description: "Delinquencies in the last 2 years"},
	{Field: FieldPublicRecords, Kind: KindInteger, Section: SectionBureau, Min: 0, Max: 10, Description: "Public records (bankruptcies, liens)"},
	{Field: FieldCollections12m, Kind: KindInteger, Section: SectionBureau, Min: 0, Max: 20, Description: "Collections in the last 12 months"},
	{Field: FieldOldestCreditLineYears, Kind: KindNumber, Section: SectionBureau, Min: 0, Max: 60, Description: "Age of oldest credit line in years"},

	{Field: FieldHousingStatus, Kind: KindCategory, Section: SectionAssets, Categories: HousingStatuses, Description: "Housing situation"},
	{Field: FieldPropertyValue, Kind: KindNumber, Section: SectionAssets, Min: 0, Max: 50_000_000, Description: "Estimated property value ($)"},
	{Field: FieldVehicleValue, Kind: KindNumber, Section: SectionAssets, Min: 0, Max: 500_000, Description: "Total vehicle value ($)"},
	{Field: FieldInvestmentAccounts, Kind: KindNumber, Section: SectionAssets, Min: 0, Max: 50_000_000, Description: "Investment and retirement account value ($)"},
	{Field: FieldTotalAssets, Kind: KindNumber, Section: SectionAssets, Min: 0, Max: 100_000_000, Description: "Total estimated assets ($)"},

	{Field: FieldHasCheckingAccount, Kind: KindFlag, Section: SectionBanking, Description: "Has a checking account"},
	{Field: FieldHasSavingsAccount, Kind: KindFlag, Section: SectionBanking, Description: "Has a savings account"},
	{Field: FieldYearsWithBank, Kind: KindNumber, Section: SectionBanking, Min: 0, Max: 60, Description: "Years with current bank"},
	{Field: FieldHasDirectDeposit, Kind: KindFlag, Section: SectionBanking, Description: "Has direct deposit set up"},

	{Field: FieldIsForeignWorker, Kind: KindFlag, Section: SectionRisk, Description: "Foreign worker status"},
	{Field: FieldHasTelephone, Kind: KindFlag, Section: SectionRisk, Description: "Has registered telephone"},
	{Field: FieldHasCoApplicant, Kind: KindFlag, Section: SectionRisk, Description: "Has co-applicant or guarantor"},
	{Field: FieldBankruptcyHistory, Kind: KindFlag, Section: SectionRisk, Description: "Any bankruptcy in history"},
	{Field: FieldForeclosureHistory, Kind: KindFlag, Section: SectionRisk, Description: "Any foreclosure in history"},
}

var (
	byField  = make(map[Field]int, len(registry))
	sections = []Section{
		SectionPersonal, SectionEmployment, SectionLoan, SectionFinancial, SectionDebt,
		SectionBureau, SectionAssets, SectionBanking, SectionRisk,
	}
)

func init() {
	for i, s := range registry {
		byField[s.Field] = i
	}
}

// Specs returns every field spec in registry order.
func Specs() []Spec {
	return slices.Clone(registry)
}

// Sections returns the form sections in display order.
func Sections() []Section {
	return slices.Clone(sections)
}

// Lookup finds the spec for a field name.
func Lookup(name string) (Spec, bool) {
	i, ok := byField[Field(name)]
	if !ok {
		return Spec{}, false
	}
	return registry[i], true
}

// order returns a field's registry position, used to keep error lists stable.
func order(f Field) int {
	if i, ok := byField[f]; ok {
		return i
	}
	return len(registry)
}

// Mode selects which subset of fields a request may carry.
type Mode string

const (
	ModeFull  Mode = "full"
	ModeQuick Mode = "quick"
)

var (
	fullRequired  = []Field{FieldAge, FieldCreditAmount, FieldDuration}
	quickRequired = []Field{FieldAge, FieldCreditAmount, FieldDuration, FieldInstallmentRate}
)

// Required lists the fields that must be present in this mode.
func (m Mode) Required() []Field {
	if m == ModeQuick {
		return slices.Clone(quickRequired)
	}
	return slices.Clone(fullRequired)
}

// Allows reports whether f may appear in a request of this mode.
func (m Mode) Allows(f Field) bool {
	if m == ModeQuick {
		return slices.Contains(quickRequired, f)
	}
	_, ok := byField[f]
	return ok
}
