package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// numberJSONBinding is binding.JSON with json.Number kept for untyped numbers. It avoids
// flipping the process-wide binding.EnableDecoderUseNumber switch.
type numberJSONBinding struct{}

func (numberJSONBinding) Name() string {
	return "json"
}

func (numberJSONBinding) Bind(req *http.Request, obj any) error {
	if req == nil || req.Body == nil {
		return errors.New("invalid request")
	}
	dec := json.NewDecoder(req.Body)
	dec.UseNumber()
	if err := dec.Decode(obj); err != nil {
		return err
	}
	if binding.Validator == nil {
		return nil
	}
	return binding.Validator.ValidateStruct(obj)
}

// BindJSON decodes the JSON request body into obj. Numbers inside map[string]any or any
// fields arrive as json.Number, so integers beyond 2^53 keep their exact value.
func BindJSON(c *gin.Context, obj any) error {
	return c.ShouldBindWith(obj, numberJSONBinding{})
}
