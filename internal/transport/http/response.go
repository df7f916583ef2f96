package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/peekwez/docai/internal/common"
	"github.com/peekwez/docai/internal/entity"
)

type errorBody struct {
	OK    bool             `json:"OK"`
	Error entity.ErrorInfo `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainErr maps domain errors to 400 with their taxonomy name and
// everything else to an opaque 500.
func writeDomainErr(w http.ResponseWriter, err error) {
	if de, ok := common.AsDomain(err); ok {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: entity.ErrorInfo{Name: de.Name, Message: de.Message},
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Error: entity.ErrorInfo{Name: common.ErrNameInternal, Message: "Internal Server Error"},
	})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{
		Error: entity.ErrorInfo{Name: "ValidationError", Message: msg},
	})
}
