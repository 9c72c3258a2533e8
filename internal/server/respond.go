package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// The API error envelope is {"detail": ...} where detail is a display
// string for business errors or an array of field errors for validation
// failures. Clients flatten the array form into one message.

type fieldDetail struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

func detail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"detail": message})
}

// bindingDetail renders a request-binding failure. Validator errors
// become a field-error array; anything else (malformed JSON) becomes a
// plain string.
func bindingDetail(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]fieldDetail, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fieldDetail{
				Loc: []string{"body", strings.ToLower(fe.Field())},
				Msg: validationMessage(fe),
			})
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": fields})
		return
	}

	detail(c, http.StatusBadRequest, "Invalid request body")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "min":
		return "ensure this value has at least " + fe.Param() + " characters"
	case "max":
		return "ensure this value has at most " + fe.Param() + " characters"
	case "phone":
		return "value is not a valid phone number"
	default:
		return "invalid value"
	}
}
