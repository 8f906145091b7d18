package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"leadmail/internal/adapters/http/perf"
	"leadmail/internal/adapters/ingest"
	"leadmail/internal/application/listutil"
	"leadmail/internal/application/orchestrators"
	"leadmail/internal/application/projections"
	emailDomain "leadmail/internal/domain/email"
	"leadmail/internal/domain/lead"
)

// uploadOverhead is the multipart framing allowed on top of the file size limit.
const uploadOverhead = 1 << 20

// perfTopN is how many paths and calls the perf endpoint lists.
const perfTopN = 10

// defaultPerfWindow is the snapshot window when ?window is absent.
const defaultPerfWindow = 15 * time.Minute

// timeNow is a variable for testability.
var timeNow = time.Now

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

//go:embed templates/*.html
var templateFS embed.FS

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// errorResponse is the JSON body of every rejected API call.
type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response_encode_failed", "error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

// renderMarkdown converts a plain-text body into preview HTML.
func renderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTMLEscapeString(md)
	}
	return buf.String()
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	funcMap := template.FuncMap{
		"csrfToken": func() string { return csrf.Token(r) },
	}
	tmpl, err := template.New(templateName).Funcs(funcMap).ParseFS(templateFS, "templates/"+templateName)
	if err != nil {
		internalError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (s *server) maxFileSize() int64 {
	if s.deps.MaxFileSize > 0 {
		return s.deps.MaxFileSize
	}
	return ingest.DefaultMaxFileSize
}

func (s *server) from(override string) string {
	if override != "" {
		return override
	}
	return s.deps.From
}

func (s *server) generateDeps() orchestrators.GenerateEmailDeps {
	return orchestrators.GenerateEmailDeps{Generator: s.deps.Generator, Brand: s.deps.Brand}
}

// indexPage is the view model of the upload page.
type indexPage struct {
	MaxFileSizeMB    int64
	From             string
	GeneratorEnabled bool
}

// handleIndex handles GET /
func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "index.html", indexPage{
		MaxFileSizeMB:    s.maxFileSize() >> 20,
		From:             s.deps.From,
		GeneratorEnabled: s.deps.Generator != nil,
	})
}

// importUpload runs the multipart "file" field through the lead importer.
// POST: On false the response has already been written
func (s *server) importUpload(w http.ResponseWriter, r *http.Request) (lead.Result, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxFileSize()+uploadOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds maximum size")
		case errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, "file is required")
		default:
			writeError(w, http.StatusBadRequest, "invalid multipart upload")
		}
		return lead.Result{}, false
	}
	defer file.Close()

	res, err := orchestrators.ExecuteImportLeads(r.Context(), orchestrators.ImportLeadsInput{
		Name:        header.Filename,
		Source:      file,
		MaxFileSize: s.maxFileSize(),
	}, orchestrators.ImportLeadsDeps{})
	if err != nil {
		var verr *orchestrators.ImportLeadsValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return lead.Result{}, false
		}
		internalError(w, err)
		return lead.Result{}, false
	}
	return res, true
}

// parseResponse is a processing result, optionally narrowed to one page of records.
type parseResponse struct {
	lead.Result
	Page *listutil.PageInfo `json:"page,omitempty"`
}

// handleLeadsParse handles POST /api/leads/parse
func (s *server) handleLeadsParse(w http.ResponseWriter, r *http.Request) {
	res, ok := s.importUpload(w, r)
	if !ok {
		return
	}
	resp := parseResponse{Result: res}
	if p := listutil.ParsePageParams(r.URL.Query()); p.Paginated() {
		info := listutil.NewPageInfo(p.Page, p.PerPage, len(res.Data))
		resp.Data = listutil.Slice(res.Data, info)
		resp.Page = &info
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLeadsSummary handles POST /api/leads/summary
func (s *server) handleLeadsSummary(w http.ResponseWriter, r *http.Request) {
	sample, _ := strconv.Atoi(r.URL.Query().Get("sample"))
	res, ok := s.importUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, projections.QueryGetImportSummary(projections.GetImportSummaryQuery{
		Result:     res,
		SampleSize: sample,
	}))
}

// handleEmailGenerate handles POST /api/emails/generate
// The body is a flat object of lead fields. Generator failures still answer 200 with fallback copy.
func (s *server) handleEmailGenerate(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if err := strictDecode(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	content := orchestrators.ExecuteGenerateEmail(r.Context(), orchestrators.GenerateEmailInput{Fields: fields}, s.generateDeps())
	writeJSON(w, http.StatusOK, content)
}

// handleEmailGenerateAll handles POST /api/emails/generate-all
func (s *server) handleEmailGenerateAll(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Records []lead.Record `json:"records"`
	}
	if err := strictDecode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	res, err := orchestrators.ExecuteGenerateMessages(r.Context(), orchestrators.GenerateMessagesInput{Records: input.Records}, s.generateDeps())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// previewMessage is a merged message with the HTML a client should display.
type previewMessage struct {
	emailDomain.Message
	PreviewHTML string `json:"previewHtml"`
}

type previewResponse struct {
	Messages []previewMessage            `json:"messages"`
	Skipped  []emailDomain.SkippedRecord `json:"skipped,omitempty"`
}

// handleEmailPreview handles POST /api/emails/preview
func (s *server) handleEmailPreview(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Records  []lead.Record        `json:"records"`
		Template emailDomain.Template `json:"template"`
		Campaign string               `json:"campaign"`
	}
	if err := strictDecode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res, err := orchestrators.ExecuteComposeMessages(r.Context(), orchestrators.ComposeInput{
		Records:  input.Records,
		Template: input.Template,
		Campaign: input.Campaign,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := previewResponse{
		Messages: make([]previewMessage, 0, len(res.Messages)),
		Skipped:  res.Skipped,
	}
	for _, m := range res.Messages {
		pm := previewMessage{Message: m, PreviewHTML: m.HTML}
		if pm.PreviewHTML == "" {
			pm.PreviewHTML = renderMarkdown(m.Text)
		}
		resp.Messages = append(resp.Messages, pm)
	}
	writeJSON(w, http.StatusOK, resp)
}

// sendResponse acknowledges a single delivered message.
type sendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

// handleEmailSend handles POST /api/emails/send
func (s *server) handleEmailSend(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Recipient string `json:"recipient"`
		Subject   string `json:"subject"`
		Text      string `json:"text"`
		HTML      string `json:"html"`
		FromEmail string `json:"fromEmail"`
	}
	if err := strictDecode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	msg := emailDomain.Message{Recipient: input.Recipient, Subject: input.Subject, Text: input.Text, HTML: input.HTML}
	if err := msg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := orchestrators.ExecuteSendMessage(r.Context(), orchestrators.SendMessageInput{
		Message: msg,
		From:    s.from(input.FromEmail),
		ReplyTo: s.deps.ReplyTo,
	}, orchestrators.SendMessageDeps{
		EmailSender:    s.deps.Sender,
		GenerateID:     generateID,
		UnsubscribeURL: s.deps.UnsubscribeURL,
	})
	if err != nil {
		slog.Error("email_send_failed", "recipient", msg.Recipient, "error", err.Error())
		writeError(w, http.StatusBadGateway, "failed to send email")
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{
		Success: true,
		Message: "Email sent successfully to " + msg.Recipient,
		ID:      res.MessageID,
	})
}

// handleEmailSendBulk handles POST /api/emails/send-bulk
// Every message is validated before the first send; dispatch failures are reported per message.
func (s *server) handleEmailSendBulk(w http.ResponseWriter, r *http.Request) {
	var input struct {
		EmailList []emailDomain.Message `json:"emailList"`
		FromEmail string                `json:"fromEmail"`
	}
	if err := strictDecode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(input.EmailList) == 0 {
		writeError(w, http.StatusBadRequest, "Missing or invalid emailList. Must be a non-empty array.")
		return
	}
	if problems := emailDomain.ValidateAll(input.EmailList); len(problems) > 0 {
		writeError(w, http.StatusBadRequest, "Validation errors", problems...)
		return
	}

	res, err := orchestrators.ExecuteDispatchIndividually(r.Context(), orchestrators.DispatchInput{
		Messages:        input.EmailList,
		From:            s.from(input.FromEmail),
		ReplyTo:         s.deps.ReplyTo,
		BatchSize:       s.deps.BatchSize,
		InterBatchDelay: s.deps.BatchDelay,
	}, orchestrators.DispatchDeps{
		EmailSender:    s.deps.Sender,
		Sleep:          s.deps.Sleep,
		GenerateID:     generateID,
		UnsubscribeURL: s.deps.UnsubscribeURL,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleEmailSendShared handles POST /api/emails/send-shared
func (s *server) handleEmailSendShared(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Recipients []string `json:"recipients"`
		Subject    string   `json:"subject"`
		Text       string   `json:"text"`
		HTML       string   `json:"html"`
		FromEmail  string   `json:"fromEmail"`
	}
	if err := strictDecode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res, err := orchestrators.ExecuteSendBulk(r.Context(), orchestrators.BulkInput{
		Recipients: input.Recipients,
		Subject:    input.Subject,
		Text:       input.Text,
		HTML:       input.HTML,
		From:       s.from(input.FromEmail),
		ReplyTo:    s.deps.ReplyTo,
	}, orchestrators.BulkDeps{EmailSender: s.deps.Sender})
	if errors.Is(err, orchestrators.ErrBulkSendFailed) {
		writeError(w, http.StatusBadGateway, "failed to send emails")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{
		Success: true,
		Message: strconv.Itoa(len(input.Recipients)) + " recipients accepted",
		ID:      res.MessageID,
	})
}

// handlePerf handles GET /api/perf
// ?window takes a Go duration (default 15m).
func (s *server) handlePerf(w http.ResponseWriter, r *http.Request) {
	window := defaultPerfWindow
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		window = d
	}
	if s.deps.Collector == nil {
		writeJSON(w, http.StatusOK, perf.Snapshot{})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Collector.Snapshot(timeNow().Add(-window), perfTopN))
}
