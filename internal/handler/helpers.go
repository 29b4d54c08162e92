package handler

import (
	"errors"
	"net/http"
	"reflect"

	"rentalcash/internal/apierror"
	"rentalcash/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0 work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for query strings.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

var statusByCode = map[string]int{
	service.CodeNoActiveSession:       http.StatusConflict,
	service.CodeSessionAlreadyOpen:    http.StatusConflict,
	service.CodeSessionClosed:         http.StatusConflict,
	service.CodeDepositAlreadySettled: http.StatusConflict,
	service.CodeItemAlreadyRented:     http.StatusConflict,
	service.CodeConflict:              http.StatusConflict,
	service.CodeExcessPayment:         http.StatusUnprocessableEntity,
	service.CodeItemNotRented:         http.StatusUnprocessableEntity,
	service.CodeValidation:            http.StatusUnprocessableEntity,
	service.CodeSessionNotFound:       http.StatusNotFound,
	service.CodeNotFound:              http.StatusNotFound,
	service.CodeForbidden:             http.StatusForbidden,
}

// respondError maps a service error to its status and envelope. Unclassified
// errors are attached to the context for ErrorHandler and answered with a
// generic 500.
func respondError(c *gin.Context, err error) {
	code := service.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.WithCode(service.CodeInternal, "internal server error", nil))
		return
	}
	c.JSON(status, apierror.WithCode(code, err.Error(), service.Meta(err)))
}
