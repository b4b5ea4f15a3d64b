package usecase

import (
	"errors"
	"reflect"
	"strings"

	"LearnCast/internal/domain/models"
	domrepo "LearnCast/internal/domain/repository"

	"github.com/go-playground/validator/v10"
)

// PredictParams is the raw prediction request as received from a caller.
type PredictParams struct {
	UserID    string       `json:"userId" validate:"required,max=128"`
	Timeframe string       `json:"timeframe" validate:"required"`
	Flags     models.Flags `json:"-"`
}

// ValidatedRequest is a request that passed ValidateRequest.
type ValidatedRequest struct {
	LearnerID string
	Timeframe domrepo.Timeframe
	Flags     models.Flags
}

var paramsValidator = newParamsValidator()

func newParamsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateRequest trims and checks the caller input. It never touches a store.
func ValidateRequest(p PredictParams) (ValidatedRequest, error) {
	p.UserID = strings.TrimSpace(p.UserID)
	p.Timeframe = strings.TrimSpace(p.Timeframe)

	if err := paramsValidator.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return ValidatedRequest{}, models.InvalidRequest(fe.Field(), fe.Tag())
		}
		return ValidatedRequest{}, models.InvalidRequest("", err.Error())
	}

	tf, err := domrepo.ParseTimeframe(p.Timeframe)
	if err != nil {
		pe := models.InvalidRequest("timeframe", "unsupported")
		pe.Err = err
		return ValidatedRequest{}, pe
	}
	return ValidatedRequest{LearnerID: p.UserID, Timeframe: tf, Flags: p.Flags}, nil
}
