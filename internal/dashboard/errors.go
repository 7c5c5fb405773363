package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/zulandar/cockpit/internal/agentstore"
	"github.com/zulandar/cockpit/internal/auth"
	"github.com/zulandar/cockpit/internal/store"
)

var (
	errBadRequest = errors.New("invalid request")
	errNotFound   = errors.New("not found")
	errConflict   = errors.New("conflict")
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, store.ErrInvalid),
		errors.Is(err, agentstore.ErrInvalidProfile),
		errors.Is(err, agentstore.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respond writes err as {"error": "..."} with its mapped status.
func (a *api) respond(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("dashboard: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", c.Writer.Header().Get(requestIDHeader),
			"error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

var validatorOnce sync.Once

// setupValidator makes gin's validator report fields by their wire names.
func setupValidator() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}

// bindError turns a binding failure into a bad request naming the first
// offending field.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return badRequest("%s", describeField(verrs[0]))
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return badRequest("%s must be %s", typeErr.Field, typeErr.Type)
	}
	if errors.Is(err, io.EOF) {
		return badRequest("request body is required")
	}
	return badRequest("%v", err)
}

func describeField(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s exceeds %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "eq":
		return fmt.Sprintf("%s must be %s", field, fe.Param())
	case "datetime":
		return field + " must be a YYYY-MM-DD date"
	case "uuid":
		return field + " must be a UUID"
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
