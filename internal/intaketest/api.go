package intaketest

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/uc4u2/candidate-intake/internal/models"
	"github.com/uc4u2/candidate-intake/internal/pkg/response"
)

func (s *Server) apiRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog("api"))

	api := r.Group("/api")

	rec := api.Group("", s.recruiterAuth())
	rec.GET("/form-templates", s.listTemplates)
	rec.POST("/form-templates", s.createTemplate)
	rec.GET("/form-templates/:id", s.getTemplate)
	rec.PUT("/form-templates/:id", s.putTemplate)
	rec.POST("/form-templates/:id", s.overrideTemplate)
	rec.DELETE("/form-templates/:id", s.archiveTemplate)
	rec.GET("/candidate-forms/submissions", s.listSubmissions)
	rec.POST("/candidate-forms/submissions/:id/convert", s.convertSubmission)
	rec.POST("/questionnaires/uploads", s.reserve)
	rec.POST("/questionnaires/uploads/:id", s.localUpload)
	rec.POST("/questionnaires/uploads/:id/complete", s.complete)
	rec.GET("/questionnaires/uploads/:id/download", s.download)

	cand := api.Group("", s.candidateOnly())
	cand.GET("/candidate-forms/intake/:token", s.getIntake)
	cand.PATCH("/candidate-forms/intake/:token", s.saveIntake)
	cand.POST("/candidate-forms/intake/:token/submit", s.submitIntake)
	cand.POST("/candidate-form-submissions/:token/uploads", s.reserve)
	cand.POST("/candidate-form-submissions/:token/uploads/:id", s.localUpload)
	cand.POST("/candidate-form-submissions/:token/uploads/:id/complete", s.complete)
	cand.GET("/candidate-form-submissions/:token/uploads/:id/download", s.download)

	return r
}

// Templates

func (s *Server) listTemplates(c *gin.Context) {
	s.count("templates.list")
	status := models.TemplateStatus(c.Query("status"))
	profession := c.Query("profession")
	archived := c.Query("include_archived") == "true"

	s.mu.Lock()
	out := make([]models.Template, 0, len(s.order))
	for _, id := range s.order {
		tpl := s.templates[id]
		if status != "" && tpl.Status != status {
			continue
		}
		if profession != "" && tpl.ProfessionKey != profession {
			continue
		}
		if !archived && status == "" && tpl.Status == models.TemplateArchived {
			continue
		}
		out = append(out, *tpl)
	}
	s.mu.Unlock()
	response.OK(c, out)
}

func (s *Server) createTemplate(c *gin.Context) {
	s.count("templates.create")
	var tpl models.Template
	if err := c.ShouldBindJSON(&tpl); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(tpl.Name) == "" {
		response.FieldErrors(c, "Template name is required", map[string]string{"name": "required"})
		return
	}
	response.Created(c, s.AddTemplate(tpl))
}

func (s *Server) getTemplate(c *gin.Context) {
	tpl, ok := s.Template(models.RecordID(c.Param("id")))
	if !ok {
		response.NotFound(c, "Template not found")
		return
	}
	response.OK(c, tpl)
}

func (s *Server) putTemplate(c *gin.Context) {
	if s.current().DropPUT {
		s.count("templates.dropped")
		if conn, _, err := c.Writer.Hijack(); err == nil {
			conn.Close()
		}
		c.Abort()
		return
	}
	s.count("templates.update")
	s.replaceTemplate(c)
}

func (s *Server) overrideTemplate(c *gin.Context) {
	if !strings.EqualFold(c.GetHeader("X-HTTP-Method-Override"), http.MethodPut) {
		response.Error(c, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.count("templates.override")
	s.replaceTemplate(c)
}

func (s *Server) replaceTemplate(c *gin.Context) {
	id := models.RecordID(c.Param("id"))
	var tpl models.Template
	if err := c.ShouldBindJSON(&tpl); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		response.NotFound(c, "Template not found")
		return
	}
	tpl.ID = id
	if tpl.Status == "" {
		tpl.Status = models.TemplateDraft
	}
	s.templates[id] = &tpl
	response.OK(c, tpl)
}

func (s *Server) archiveTemplate(c *gin.Context) {
	s.count("templates.archive")
	s.mu.Lock()
	defer s.mu.Unlock()
	tpl, ok := s.templates[models.RecordID(c.Param("id"))]
	if !ok {
		response.NotFound(c, "Template not found")
		return
	}
	tpl.Status = models.TemplateArchived
	response.NoContent(c)
}

// Intake

func (s *Server) getIntake(c *gin.Context) {
	s.count("intake.get")
	s.mu.Lock()
	in, ok := s.intakes[c.Param("token")]
	if !ok {
		s.mu.Unlock()
		response.NotFound(c, "Intake link is invalid or expired")
		return
	}
	var tpl models.Template
	if t, ok := s.templates[in.sub.TemplateID]; ok {
		tpl = *t
	}
	body := gin.H{
		"template":       tpl,
		"submission":     snapshot(in.sub),
		"questionnaires": in.questionnaires,
	}
	if in.storage != nil {
		body["storage"] = in.storage
	}
	s.mu.Unlock()
	response.OK(c, body)
}

func (s *Server) saveIntake(c *gin.Context) {
	s.count("intake.save")
	var body struct {
		Responses map[string]any `json:"responses"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intakes[c.Param("token")]
	if !ok {
		response.NotFound(c, "Intake link is invalid or expired")
		return
	}
	if in.sub.ReadOnly() {
		response.Conflict(c, "This intake has already been submitted")
		return
	}
	for k, v := range body.Responses {
		in.sub.Responses[k] = v
	}
	if in.sub.Status == models.SubmissionInvited {
		in.sub.Status = models.SubmissionInProgress
	}
	response.OK(c, gin.H{"responses": snapshot(in.sub).Responses})
}

func (s *Server) submitIntake(c *gin.Context) {
	s.count("intake.submit")
	var body struct {
		Responses map[string]any `json:"responses"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if fields := s.current().SubmitFieldErrors; len(fields) > 0 {
		response.FieldErrors(c, "Validation failed", fields)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intakes[c.Param("token")]
	if !ok {
		response.NotFound(c, "Intake link is invalid or expired")
		return
	}
	if in.sub.ReadOnly() {
		response.Conflict(c, "This intake has already been submitted")
		return
	}
	for k, v := range body.Responses {
		in.sub.Responses[k] = v
	}
	now := time.Now().UTC()
	in.sub.Status = models.SubmissionSubmitted
	in.sub.SubmittedAt = &now
	response.OK(c, gin.H{"submission": snapshot(in.sub), "questionnaires": in.questionnaires})
}

func (s *Server) listSubmissions(c *gin.Context) {
	s.count("submissions.list")
	status := models.SubmissionStatus(c.Query("status"))
	profession := c.Query("profession")

	s.mu.Lock()
	out := make([]models.Submission, 0, len(s.intakes))
	for _, in := range s.intakes {
		if status != "" && in.sub.Status != status {
			continue
		}
		if profession != "" {
			tpl, ok := s.templates[in.sub.TemplateID]
			if !ok || tpl.ProfessionKey != profession {
				continue
			}
		}
		out = append(out, snapshot(in.sub))
	}
	s.mu.Unlock()
	response.Items(c, out)
}

func (s *Server) convertSubmission(c *gin.Context) {
	s.count("submissions.convert")
	s.mu.Lock()
	defer s.mu.Unlock()
	in := s.intakeBySubmission(models.RecordID(c.Param("id")))
	if in == nil {
		response.NotFound(c, "Submission not found")
		return
	}
	if in.sub.Status != models.SubmissionSubmitted {
		response.Conflict(c, "Only submitted intakes can be converted")
		return
	}
	in.sub.Status = models.SubmissionConverted
	response.OK(c, gin.H{"candidate_id": uuid.NewString(), "submission": snapshot(in.sub)})
}

// Uploads

func (s *Server) reserve(c *gin.Context) {
	s.count("uploads.reserve")
	b := s.current()
	if b.ReserveGate != nil {
		select {
		case <-b.ReserveGate:
		case <-c.Request.Context().Done():
			return
		}
	}
	if b.FailReserve != "" {
		response.BadRequest(c, b.FailReserve)
		return
	}
	var body struct {
		SubmissionID models.RecordID `json:"submission_id"`
		FieldKey     string          `json:"field_key"`
		Filename     string          `json:"filename"`
		ContentType  string          `json:"content_type"`
		Size         int64           `json:"size"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(body.FieldKey) == "" {
		response.BadRequest(c, "field_key is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	token := c.Param("token")
	var in *intake
	if token != "" {
		in = s.intakes[token]
	} else {
		in = s.intakeBySubmission(body.SubmissionID)
	}
	if in == nil {
		response.NotFound(c, "Submission not found")
		return
	}
	if in.sub.ReadOnly() {
		response.Conflict(c, "This intake has already been submitted")
		return
	}

	id := s.nextID()
	sf := &storedFile{
		att: models.Attachment{
			ID:               id,
			SubmissionID:     in.sub.ID,
			FieldKey:         body.FieldKey,
			OriginalFilename: body.Filename,
			ContentType:      body.ContentType,
			FileSize:         body.Size,
		},
		token: in.token,
		key:   fmt.Sprintf("questionnaires/%s/%s/%s", in.sub.ID, id, body.Filename),
	}
	s.files[id] = sf
	out := gin.H{}

	switch b.Provider {
	case "":
		sf.att.ScanStatus = b.ScanStatus
		s.objects[sf.key] = object{contentType: body.ContentType}
		attach(in.sub, sf.att)
	case models.ProviderS3:
		desc, err := s.objectDescriptor(c.Request.Context(), sf.key, body.ContentType, b.S3Method)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		out["upload"] = desc
	default:
		desc := models.UploadDescriptor{
			Provider: b.Provider,
			Fields:   map[string]string{"upload_token": uuid.NewString()},
		}
		if !b.OmitLocalURL {
			if token != "" {
				desc.URL = "/api/candidate-form-submissions/" + token + "/uploads/local"
			} else {
				desc.URL = "/api/questionnaires/uploads/local"
			}
		}
		out["upload"] = desc
	}
	out["file"] = sf.att
	response.Created(c, out)
}

// lookupFile finds a file the caller may touch: candidates only see files of
// their own intake.
func (s *Server) lookupFile(c *gin.Context, id models.RecordID) *storedFile {
	sf, ok := s.files[id]
	if !ok {
		return nil
	}
	if token := c.Param("token"); token != "" && sf.token != token {
		return nil
	}
	return sf
}

func (s *Server) localUpload(c *gin.Context) {
	if c.Param("id") != "local" {
		response.NotFound(c, "")
		return
	}
	s.count("uploads.local")
	form, err := readMultipart(c.Request)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if form.file == nil {
		response.BadRequest(c, "file is required")
		return
	}

	b := s.current()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parts["uploads.local"] = form.names
	sf := s.lookupFile(c, models.RecordID(form.values["file_id"]))
	if sf == nil {
		response.NotFound(c, "Upload not found")
		return
	}
	s.objects[sf.key] = object{body: form.file, contentType: form.contentType}
	sf.att.FileSize = int64(len(form.file))
	sf.att.ContentType = form.contentType
	sf.att.ScanStatus = b.ScanStatus
	if in := s.intakeFor(sf); in != nil {
		attach(in.sub, sf.att)
	}
	response.OK(c, gin.H{"file": sf.att})
}

func (s *Server) complete(c *gin.Context) {
	s.count("uploads.complete")
	b := s.current()
	if b.FailComplete != "" {
		response.Error(c, http.StatusBadGateway, b.FailComplete)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sf := s.lookupFile(c, models.RecordID(c.Param("id")))
	if sf == nil {
		response.NotFound(c, "Upload not found")
		return
	}
	obj, ok := s.objects[sf.key]
	if !ok {
		response.Conflict(c, "Upload not found in storage")
		return
	}
	sf.att.FileSize = int64(len(obj.body))
	sf.att.ScanStatus = b.ScanStatus
	if in := s.intakeFor(sf); in != nil {
		attach(in.sub, sf.att)
	}
	response.OK(c, gin.H{"file": sf.att})
}

func (s *Server) download(c *gin.Context) {
	s.count("uploads.download")
	b := s.current()
	s.mu.Lock()
	sf := s.lookupFile(c, models.RecordID(c.Param("id")))
	var (
		obj   object
		found bool
		att   models.Attachment
	)
	if sf != nil {
		obj, found = s.objects[sf.key]
		att = sf.att
	}
	s.mu.Unlock()
	if !found {
		response.NotFound(c, "File not found")
		return
	}

	if b.LinkDownloads {
		link, err := s.downloadLink(c.Request.Context(), sf.key)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, gin.H{"download": gin.H{"url": link}})
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.OriginalFilename}))
	c.Data(http.StatusOK, obj.contentType, obj.body)
}

type multipartBody struct {
	names       []string
	values      map[string]string
	file        []byte
	filename    string
	contentType string
}

// readMultipart reads every part in order so tests can check part order.
func readMultipart(r *http.Request) (*multipartBody, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	out := &multipartBody{values: make(map[string]string)}
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(p)
		if err != nil {
			return nil, err
		}
		name := p.FormName()
		out.names = append(out.names, name)
		if name == "file" {
			out.file = data
			out.filename = p.FileName()
			out.contentType = p.Header.Get("Content-Type")
			continue
		}
		out.values[name] = string(data)
	}
}
