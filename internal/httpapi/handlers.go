package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/history"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/pipeline"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/records"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/render/dossier"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/session"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/transfer"
)

var errFileTooLarge = errors.New("file too large")

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}

// handleProcess reads up to one photo per role. Roles that fail are reported
// in "errors" and the request still succeeds, matching the form workflow
// where the user fills the gaps by hand.
func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(len(records.Roles))*h.maxUpload+maxMemory)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Error al procesar los documentos", err)
		return
	}

	var uploads []pipeline.Upload
	for _, role := range records.Roles {
		image, found, err := h.readFile(r, string(role))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Error al procesar los documentos", fmt.Errorf("%s: %w", role, err))
			return
		}
		if found {
			uploads = append(uploads, pipeline.Upload{Role: role, Image: image})
		}
	}

	result, err := h.svc.Process(r.Context(), r.FormValue("sessionId"), uploads)
	if err != nil && !errors.Is(err, pipeline.ErrAllRolesFailed) {
		writeError(w, http.StatusInternalServerError, "Error al procesar los documentos", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleProcessImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+maxMemory)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, "No se proporcionó ninguna imagen", err)
		return
	}

	image, found, err := h.readFile(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No se proporcionó ninguna imagen", err)
		return
	}
	if !found {
		writeError(w, http.StatusBadRequest, "No se proporcionó ninguna imagen", nil)
		return
	}

	typ := r.FormValue("type")
	role, err := records.ParseRole(typ)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Tipo de documento inválido", err)
		return
	}

	outcome, err := h.svc.ProcessImage(r.Context(), role, image)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Error al procesar la imagen",
			Details: err.Error(),
			Type:    typ,
		})
		return
	}

	var data any = outcome.Person
	if outcome.Vehicle != nil {
		data = outcome.Vehicle
	}
	writeJSON(w, http.StatusOK, map[string]any{"type": typ, "data": data})
}

type generatePDFRequest struct {
	Data records.Bundle `json:"data"`
	Type string         `json:"type"`
}

func (h *Handler) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	var req generatePDFRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Error al generar el documento PDF", err)
		return
	}

	doc, err := transfer.ParseDocument(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Tipo de documento no válido", err)
		return
	}

	out, err := h.svc.RenderPDF(r.Context(), doc, req.Data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error al generar el documento PDF", err)
		return
	}
	if out.Report != nil && len(out.Report.Missing)+len(out.Report.Failed) > 0 {
		h.log.WithFields(logrus.Fields{
			"missing": out.Report.Missing,
			"failed":  len(out.Report.Failed),
		}).Warn("Official form filled with gaps")
	}
	writeAttachment(w, out.ContentType, out.Filename, out.Data)
}

type generateXMLRequest struct {
	Data    records.Bundle  `json:"data"`
	Options dossier.Options `json:"options"`
}

func (h *Handler) handleGenerateXML(w http.ResponseWriter, r *http.Request) {
	var req generateXMLRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Error al generar el archivo XML", err)
		return
	}

	out, err := h.svc.RenderDossier(r.Context(), req.Data, req.Options)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error al generar el archivo XML", err)
		return
	}
	writeAttachment(w, out.ContentType, out.Filename, out.Data)
}

type bundleRequest struct {
	Data records.Bundle `json:"data"`
}

type shareResponse struct {
	Blob string `json:"blob"`
	Path string `json:"path"`
}

func (h *Handler) handleShare(w http.ResponseWriter, r *http.Request) {
	var req bundleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Datos no válidos", err)
		return
	}

	blob, err := h.svc.Share(req.Data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error al compartir los datos", err)
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{Blob: blob, Path: "/api/share/" + urlSafe(blob)})
}

func (h *Handler) handleLoadShare(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.LoadShared(chi.URLParam(r, "blob"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Enlace compartido no válido", err)
		return
	}
	writeJSON(w, http.StatusOK, bundleRequest{Data: b})
}

type sessionResponse struct {
	SessionID string         `json:"sessionId"`
	Data      records.Bundle `json:"data"`
}

type fieldUpdate struct {
	Role  string `json:"role"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := h.svc.Session(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Sesión no encontrada", err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Data: sess.Snapshot()})
}

func (h *Handler) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req fieldUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Datos no válidos", err)
		return
	}
	role, err := records.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Tipo de documento inválido", err)
		return
	}

	b, err := h.svc.UpdateField(id, role, req.Key, req.Value)
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "Sesión no encontrada", err)
	case err != nil:
		writeError(w, http.StatusBadRequest, "Campo no válido", err)
	default:
		writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Data: b})
	}
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	h.svc.CloseSession(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListHistory(r.Context())
	if err != nil {
		h.writeHistoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleSaveHistory(w http.ResponseWriter, r *http.Request) {
	var req bundleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Datos no válidos", err)
		return
	}
	item, err := h.svc.SaveHistory(r.Context(), req.Data)
	if err != nil {
		h.writeHistoryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.HistoryItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeHistoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteHistory(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeHistoryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearHistory(r.Context()); err != nil {
		h.writeHistoryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeHistoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transfer.ErrHistoryDisabled):
		writeError(w, http.StatusServiceUnavailable, "Historial no disponible", err)
	case errors.Is(err, history.ErrNotFound):
		writeError(w, http.StatusNotFound, "Elemento no encontrado", err)
	default:
		h.log.WithError(err).Error("History operation failed")
		writeError(w, http.StatusInternalServerError, "Error en el historial", err)
	}
}

// readFile returns the contents of the multipart file field, if present
func (h *Handler) readFile(r *http.Request, field string) ([]byte, bool, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer file.Close()

	if header.Size > h.maxUpload {
		return nil, false, fmt.Errorf("%w: %d bytes", errFileTooLarge, header.Size)
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > h.maxUpload {
		return nil, false, errFileTooLarge
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	return data, true, nil
}

func urlSafe(blob string) string {
	return strings.TrimRight(strings.NewReplacer("+", "-", "/", "_").Replace(blob), "=")
}
