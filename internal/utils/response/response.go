package response

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Response struct {
	Status  string            `json:"status"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// FieldError points the caller at the one input that must change.
func FieldError(field string, err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
		Fields: map[string]string{field: err.Error()},
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	messages := make([]string, 0, len(errs))
	fields := make(map[string]string, len(errs))
	for _, err := range errs {
		msg := err.Tag()
		if err.Param() != "" {
			msg += "=" + err.Param()
		}
		fields[err.Namespace()] = msg
		messages = append(messages, err.Field()+": "+msg)
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(messages, "; "),
		Fields: fields,
	}
}

func RequestOK(message string, data interface{}) Response {
	return Response{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	}
}
