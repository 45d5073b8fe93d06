package features

import "creditrisk/internal/application"

// MonthlyIncome prefers the declared monthly figure and otherwise spreads
// annual plus other income over twelve months.
func MonthlyIncome(app *application.Application) (float64, bool) {
	if m, ok := app.Number(application.FieldMonthlyIncome); ok && m > 0 {
		return m, true
	}
	annual, ok := app.Number(application.FieldAnnualIncome)
	if !ok {
		return 0, false
	}
	if other, ok := app.Number(application.FieldOtherIncome); ok {
		annual += other
	}
	if annual <= 0 {
		return 0, false
	}
	return annual / 12, true
}

// DebtToIncome is monthly debt payments over monthly income.
func DebtToIncome(app *application.Application) (float64, bool) {
	debt, ok := app.Number(application.FieldMonthlyDebtPayments)
	if !ok {
		return 0, false
	}
	income, ok := MonthlyIncome(app)
	if !ok {
		return 0, false
	}
	return debt / income, true
}

// LoanToValue is the requested amount over the declared property value.
func LoanToValue(app *application.Application) (float64, bool) {
	amount, ok := app.Number(application.FieldCreditAmount)
	if !ok {
		return 0, false
	}
	value, ok := app.Number(application.FieldPropertyValue)
	if !ok || value <= 0 {
		return 0, false
	}
	return amount / value, true
}

// MonthlyBurden approximates the installment load of the requested loan.
func MonthlyBurden(app *application.Application) (float64, bool) {
	amount, ok := app.Number(application.FieldCreditAmount)
	if !ok {
		return 0, false
	}
	duration, ok := app.Number(application.FieldDuration)
	if !ok {
		return 0, false
	}
	rate, ok := app.Number(application.FieldInstallmentRate)
	if !ok {
		return 0, false
	}
	return amount / (duration + 1) * (rate / 100), true
}

// CreditUtilization is revolving balance over revolving limit.
func CreditUtilization(app *application.Application) (float64, bool) {
	balance, ok := app.Number(application.FieldCreditCardBalance)
	if !ok {
		return 0, false
	}
	limit, ok := app.Number(application.FieldCreditCardLimit)
	if !ok || limit <= 0 {
		return 0, false
	}
	return balance / limit, true
}
