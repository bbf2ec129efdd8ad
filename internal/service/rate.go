package service

import (
	"github.com/evandijk/tutorbase-api/internal/models"
	appErrors "github.com/evandijk/tutorbase-api/pkg/errors"
)

// EffectiveRate resolves the rate actually billed for a class occurrence:
// the class-level override when present and non-zero, otherwise the
// student's default rate as it stands at read time. A rate recorded on
// neither side is a data-integrity defect and is returned as an error, never
// as zero.
func EffectiveRate(class models.ClassDetail) (int, error) {
	if class.LessonRate != nil && *class.LessonRate != 0 {
		return *class.LessonRate, nil
	}
	if class.StudentRate != 0 {
		return class.StudentRate, nil
	}
	return 0, appErrors.Clone(appErrors.ErrMissingRate, "")
}
