// params.go — извлечение параметров пути.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// parseID извлекает положительный идентификатор записи из параметра пути {id}.
func parseID(r *http.Request) (int64, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return 0, fmt.Errorf("некорректный параметр id: %w", err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("некорректный параметр id: %d", id)
	}
	return id, nil
}
