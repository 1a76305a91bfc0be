package helpers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	httperrors "github.com/dropDatabas3/humanid/internal/http/errors"
)

// ReadParams devuelve los parámetros del body como url.Values, sea
// application/x-www-form-urlencoded o un objeto JSON plano. Los valores JSON
// no string (bool, number) se pasan a texto; objetos y arrays se rechazan.
func ReadParams(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	if IsJSON(r) {
		var raw map[string]any
		if err := ReadJSON(w, r, &raw); err != nil {
			return nil, err
		}
		out := url.Values{}
		for k, v := range raw {
			switch t := v.(type) {
			case nil:
			case string:
				out.Set(k, t)
			case bool:
				out.Set(k, strconv.FormatBool(t))
			case float64:
				out.Set(k, strconv.FormatFloat(t, 'f', -1, 64))
			default:
				return nil, httperrors.ErrInvalidJSON.WithDetail(fmt.Sprintf("field %q must be a scalar", k))
			}
		}
		return out, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return nil, httperrors.ErrBadRequest.WithCause(err)
	}
	return r.PostForm, nil
}

// Bool interpreta checkboxes de formulario y booleanos JSON.
func Bool(v string) bool {
	switch v {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
