package orders

import (
	"github.com/shopspring/decimal"

	"github.com/studyassist/studyassist-backend/pkg/enums"
	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
)

// Base prices in rubles per work type.
var basePriceByWorkType = map[enums.WorkType]decimal.Decimal{
	enums.WorkTypeEssay:        decimal.NewFromInt(800),
	enums.WorkTypeCoursework:   decimal.NewFromInt(3500),
	enums.WorkTypeDiploma:      decimal.NewFromInt(15000),
	enums.WorkTypeControl:      decimal.NewFromInt(600),
	enums.WorkTypePractice:     decimal.NewFromInt(2000),
	enums.WorkTypePresentation: decimal.NewFromInt(500),
	enums.WorkTypeTest:         decimal.NewFromInt(1000),
}

var subjectCoefficient = map[enums.Subject]decimal.Decimal{
	enums.SubjectLaw:        decimal.RequireFromString("1.2"),
	enums.SubjectEconomics:  decimal.RequireFromString("1.1"),
	enums.SubjectManagement: decimal.RequireFromString("1.0"),
	enums.SubjectPsychology: decimal.RequireFromString("1.0"),
	enums.SubjectPedagogy:   decimal.RequireFromString("0.95"),
	enums.SubjectMarketing:  decimal.RequireFromString("1.1"),
	enums.SubjectIT:         decimal.RequireFromString("1.3"),
	enums.SubjectMedicine:   decimal.RequireFromString("1.4"),
	enums.SubjectHistory:    decimal.RequireFromString("0.9"),
	enums.SubjectOther:      decimal.RequireFromString("1.0"),
}

// Urgency multipliers keyed by the largest deadline bucket the order fits.
type deadlineBucket struct {
	maxDays     int
	coefficient decimal.Decimal
}

var deadlineBuckets = []deadlineBucket{
	{maxDays: 1, coefficient: decimal.RequireFromString("2.0")},
	{maxDays: 3, coefficient: decimal.RequireFromString("1.5")},
	{maxDays: 7, coefficient: decimal.RequireFromString("1.2")},
	{maxDays: 14, coefficient: decimal.RequireFromString("1.0")},
}

var relaxedDeadlineCoefficient = decimal.RequireFromString("0.9")

// Quote captures the price breakdown handed back to the calculator.
type Quote struct {
	WorkType     enums.WorkType  `json:"work_type"`
	Subject      enums.Subject   `json:"subject"`
	DeadlineDays int             `json:"deadline_days"`
	BasePrice    decimal.Decimal `json:"base_price"`
	Price        decimal.Decimal `json:"price"`
}

// CalculatePrice derives the order price from the published tables. The
// result is rounded to whole rubles.
func CalculatePrice(workType enums.WorkType, subject enums.Subject, deadlineDays int) (*Quote, error) {
	base, ok := basePriceByWorkType[workType]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown work type").WithDetails(map[string]any{"work_type": workType})
	}
	subj, ok := subjectCoefficient[subject]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown subject").WithDetails(map[string]any{"subject": subject})
	}
	if deadlineDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deadline must be at least one day")
	}

	price := base.Mul(subj).Mul(deadlineCoefficient(deadlineDays)).Round(0)

	return &Quote{
		WorkType:     workType,
		Subject:      subject,
		DeadlineDays: deadlineDays,
		BasePrice:    base,
		Price:        price,
	}, nil
}

func deadlineCoefficient(days int) decimal.Decimal {
	for _, bucket := range deadlineBuckets {
		if days <= bucket.maxDays {
			return bucket.coefficient
		}
	}
	return relaxedDeadlineCoefficient
}
