package http

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/golang/glog"

	"github.com/mind-engage/mindengage-progress/internal/learner"
)

const maxImportBytes = 10 << 20

// BulkUpsertLearnersHandler accepts a JSON array body, or a multipart file=
// holding either JSON or CSV.
func BulkUpsertLearnersHandler(store learner.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []learner.Row
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(maxImportBytes); err != nil {
				writeStatus(w, http.StatusBadRequest, "bad multipart form")
				return
			}
			f, _, err := r.FormFile("file")
			if err != nil {
				writeStatus(w, http.StatusBadRequest, "file required")
				return
			}
			defer f.Close()
			rs, err := decodeRows(f)
			if err != nil {
				writeStatus(w, http.StatusBadRequest, err.Error())
				return
			}
			rows = rs
		} else {
			if err := json.NewDecoder(io.LimitReader(r.Body, maxImportBytes)).Decode(&rows); err != nil {
				writeStatus(w, http.StatusBadRequest, "expected JSON array or multipart file")
				return
			}
		}
		if len(rows) == 0 {
			writeJSON(w, http.StatusOK, learner.UpsertStats{})
			return
		}
		for i, row := range rows {
			if err := validate.Struct(row); err != nil {
				writeStatus(w, http.StatusBadRequest, fmt.Sprintf("row %d: %v", i+1, validationError(err)))
				return
			}
		}

		st, err := store.BulkUpsert(r.Context(), rows)
		if err != nil {
			glog.Warningf("api: bulk upsert of %d learners: %v", len(rows), err)
			writeError(w, err)
			return
		}
		glog.Infof("api: bulk upsert inserted=%d updated=%d", st.Inserted, st.Updated)
		writeJSON(w, http.StatusOK, st)
	}
}

// decodeRows sniffs JSON vs CSV by the first non-space byte.
func decodeRows(rd io.Reader) ([]learner.Row, error) {
	br := bufio.NewReader(rd)
	for {
		b, err := br.Peek(1)
		if err != nil {
			return nil, fmt.Errorf("empty file")
		}
		if b[0] == ' ' || b[0] == '\n' || b[0] == '\r' || b[0] == '\t' {
			_, _ = br.ReadByte()
			continue
		}
		if b[0] == '[' {
			var rows []learner.Row
			if err := json.NewDecoder(br).Decode(&rows); err != nil {
				return nil, fmt.Errorf("bad json")
			}
			return rows, nil
		}
		rows, err := learner.ParseCSV(br)
		if err != nil {
			return nil, fmt.Errorf("bad csv: %w", err)
		}
		return rows, nil
	}
}
