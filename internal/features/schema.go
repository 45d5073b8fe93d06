package features

import (
	"slices"

	"creditrisk/internal/application"
)

// SchemaVersion identifies the feature layout the encoder produces. Model
// artifacts record the version they were trained against.
const SchemaVersion = "credit-v2"

// Kind describes how a feature is derived from the application.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
	KindFlag        Kind = "flag"
	KindDerived     Kind = "derived"
)

// Feature is one position of the model input vector.
type Feature struct {
	Name   string
	Source application.Field
	Kind   Kind
	// Categories maps category values to indices 1..n; index 0 is the
	// unknown/other bucket.
	Categories []string
	// Impute is the training-time value used when an optional source field
	// is absent. Derived features never impute; they encode 0.
	Impute float64

	derive func(*application.Application) (float64, bool)
}

// CategoryIndex maps a category value to its index, 0 when unseen.
func (f Feature) CategoryIndex(value string) int {
	if i := slices.Index(f.Categories, value); i >= 0 {
		return i + 1
	}
	return 0
}

// Schema is the ordered, versioned feature layout.
type Schema struct {
	Version  string
	Features []Feature
}

// Names returns the feature names in vector order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Features))
	for i, f := range s.Features {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of the named feature, or -1.
func (s Schema) Index(name string) int {
	return slices.IndexFunc(s.Features, func(f Feature) bool { return f.Name == name })
}

// Len is the vector length.
func (s Schema) Len() int {
	return len(s.Features)
}

func numeric(f application.Field, impute float64) Feature {
	return Feature{Name: string(f), Source: f, Kind: KindNumeric, Impute: impute}
}

func categorical(f application.Field, categories []string, impute string) Feature {
	feat := Feature{Name: string(f), Source: f, Kind: KindCategorical, Categories: slices.Clone(categories)}
	feat.Impute = float64(feat.CategoryIndex(impute))
	return feat
}

func flag(f application.Field, impute bool) Feature {
	feat := Feature{Name: string(f), Source: f, Kind: KindFlag}
	if impute {
		feat.Impute = 1
	}
	return feat
}

func derived(name string, fn func(*application.Application) (float64, bool)) Feature {
	return Feature{Name: name, Kind: KindDerived, derive: fn}
}

// Derived feature names.
const (
	FeatureDebtToIncome      = "debt_to_income"
	FeatureLoanToValue       = "loan_to_value"
	FeatureMonthlyBurden     = "monthly_burden"
	FeatureCreditUtilization = "credit_utilization"
)

// DefaultSchema returns the credit-v2 layout.
func DefaultSchema() Schema {
	return Schema{
		Version: SchemaVersion,
		Features: []Feature{
			numeric(application.FieldAge, 35),
			numeric(application.FieldCreditAmount, 3000),
			numeric(application.FieldDuration, 18),
			numeric(application.FieldInstallmentRate, 4),
			numeric(application.FieldNumDependents, 1),
			numeric(application.FieldYearsAtAddress, 4),
			numeric(application.FieldYearsEmployed, 3),
			numeric(application.FieldAnnualIncome, 50_000),
			numeric(application.FieldExistingCredits, 1),
			numeric(application.FieldCreditScore, 680),
			numeric(application.FieldInquiries6m, 0),
			numeric(application.FieldLatePayments2y, 0),
			numeric(application.FieldDelinquencies2y, 0),
			numeric(application.FieldPublicRecords, 0),
			numeric(application.FieldYearsWithBank, 3),
			categorical(application.FieldCheckingStatus, application.CheckingStatuses, "no_account"),
			categorical(application.FieldSavingsStatus, application.SavingsStatuses, "under_500"),
			categorical(application.FieldCreditHistory, application.CreditHistories, "existing_paid"),
			categorical(application.FieldEmploymentStatus, application.EmploymentStatuses, "full_time"),
			categorical(application.FieldLoanPurpose, application.LoanPurposes, "personal"),
			categorical(application.FieldHousingStatus, application.HousingStatuses, "rent"),
			categorical(application.FieldMaritalStatus, application.MaritalStatuses, "single"),
			categorical(application.FieldEducationLevel, application.EducationLevels, "bachelors"),
			flag(application.FieldHasCoApplicant, false),
			flag(application.FieldIsForeignWorker, false),
			flag(application.FieldBankruptcyHistory, false),
			flag(application.FieldHasTelephone, true),
			derived(FeatureDebtToIncome, DebtToIncome),
			derived(FeatureLoanToValue, LoanToValue),
			derived(FeatureMonthlyBurden, MonthlyBurden),
			derived(FeatureCreditUtilization, CreditUtilization),
		},
	}
}

// Verify checks that a model's recorded schema matches s exactly.
func Verify(s Schema, version string, names []string) error {
	var violations []Violation
	if version != s.Version {
		violations = append(violations, Violation{
			Field:  "schema_version",
			Reason: ReasonSchemaMismatch,
			Detail: "model expects " + version + ", encoder produces " + s.Version,
		})
	}
	if len(names) != s.Len() {
		violations = append(violations, Violation{
			Field:  "features",
			Reason: ReasonSchemaMismatch,
			Detail: "feature count differs from encoder schema",
		})
	} else {
		for i, f := range s.Features {
			if names[i] != f.Name {
				violations = append(violations, Violation{
					Field:  names[i],
					Reason: ReasonSchemaMismatch,
					Detail: "encoder has " + f.Name + " at this position",
				})
			}
		}
	}
	if len(violations) > 0 {
		return &EncodingError{Violations: violations}
	}
	return nil
}
