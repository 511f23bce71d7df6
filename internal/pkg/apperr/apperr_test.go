package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("confirm store payment: %w", Conflictf("order %d is %s", 7, "completed"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, http.StatusConflict, HTTPStatus(err))
	assert.Equal(t, "CONFLICT", Code(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validationf("amount must be greater than 0"), http.StatusBadRequest},
		{NotFoundf("order not found"), http.StatusNotFound},
		{Conflictf("only pending orders can be cancelled"), http.StatusConflict},
		{Unauthorizedf("missing token"), http.StatusUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestBodyHidesInternalErrors(t *testing.T) {
	body := Body(errors.New("pq: relation \"payments\" does not exist"))
	assert.Equal(t, "internal server error", body["error"])
	assert.Equal(t, "INTERNAL", body["code"])

	body = Body(Validationf("order id is required"))
	assert.Equal(t, "order id is required", body["error"])
}
