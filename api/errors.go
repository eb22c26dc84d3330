package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gilby125/cs509-reservation-client/reservation"
	"github.com/gilby125/cs509-reservation-client/timezone"
	"github.com/gilby125/cs509-reservation-client/worker"
)

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, timezone.ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, timezone.ErrUnknownAirport):
		return http.StatusNotFound
	case errors.Is(err, worker.ErrRefreshRunning), errors.Is(err, worker.ErrLeaseHeld):
		return http.StatusConflict
	case errors.Is(err, reservation.ErrServer),
		errors.Is(err, reservation.ErrDecode),
		errors.Is(err, timezone.ErrNetwork):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
