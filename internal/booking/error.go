package booking

import (
	"errors"
	"fmt"

	"github.com/avstrong/hotel/internal/domain"
)

var (
	ErrNextReference = errors.New("get next booking reference from generator")
	ErrIDNotVerified = fmt.Errorf("%w: guest id has not been verified", domain.ErrInvalidTransition)
	ErrEarlyCheckIn  = fmt.Errorf("%w: check-in date has not come yet", domain.ErrInvalidTransition)
)

type InputError struct {
	fields map[string][]string
}

func newInputError() *InputError {
	return &InputError{
		fields: make(map[string][]string),
	}
}

func IsInputError(err error) *InputError {
	if err == nil {
		return nil
	}

	var inputError *InputError

	if errors.As(err, &inputError) {
		return inputError
	}

	return nil
}

func (ie *InputError) fieldsCount() int {
	return len(ie.fields)
}

func (ie *InputError) addError(field, msg string) {
	ie.fields[field] = append(ie.fields[field], msg)
}

func (ie *InputError) Error() string {
	return fmt.Sprintf("invalid booking input: %+v", ie.fields)
}

func (ie *InputError) Fields() map[string][]string {
	return ie.fields
}
