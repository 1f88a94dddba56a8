// Package intaketest runs an in-process stand-in for the intake API and the
// object storage behind it, for tests.
package intaketest

import (
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/uc4u2/candidate-intake/internal/client"
	"github.com/uc4u2/candidate-intake/internal/models"
	"github.com/uc4u2/candidate-intake/internal/pkg/jwt"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const (
	// Bucket is the storage bucket presigned uploads point at.
	Bucket = "intake-files"
	// CompanyID is the company the recruiter token is scoped to.
	CompanyID = "42"

	jwtSecret = "intaketest-secret"
)

// Behavior controls how the fake answers.
type Behavior struct {
	// Provider selects the reservation descriptor. Empty means the API keeps
	// the file at reserve time and sends no descriptor.
	Provider models.UploadProvider
	// S3Method is POST (presigned form, the default) or PUT.
	S3Method string
	// OmitLocalURL leaves the url out of local descriptors.
	OmitLocalURL bool
	// ScanStatus is given to every stored file.
	ScanStatus models.ScanStatus

	FailReserve  string
	FailStorage  string
	FailComplete string
	// DropPUT closes the connection on template PUTs, like a proxy that
	// refuses the method.
	DropPUT bool
	// LinkDownloads answers downloads with a JSON link to storage.
	LinkDownloads     bool
	SubmitFieldErrors map[string]string
	// ReserveGate, when set, holds every reserve call until it is closed.
	ReserveGate <-chan struct{}
}

// Server is the fake. API and Storage are separate hosts.
type Server struct {
	API     *httptest.Server
	Storage *httptest.Server
	Signer  *jwt.Signer

	log     *zap.Logger
	presign *s3.PresignClient

	mu        sync.Mutex
	behavior  Behavior
	calls     map[string]int
	parts     map[string][]string
	seq       int
	order     []models.RecordID
	templates map[models.RecordID]*models.Template
	intakes   map[string]*intake
	files     map[models.RecordID]*storedFile
	objects   map[string]object
}

type intake struct {
	token          string
	sub            *models.Submission
	questionnaires []models.QuestionnaireAssignment
	storage        map[string]any
}

type storedFile struct {
	att   models.Attachment
	token string
	key   string
}

type object struct {
	body        []byte
	contentType string
}

// New starts the fake and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	signer, err := jwt.NewSigner(jwtSecret)
	if err != nil {
		t.Fatal(err)
	}
	s := &Server{
		Signer:    signer,
		log:       zaptest.NewLogger(t).Named("intaketest"),
		behavior:  Behavior{Provider: models.ProviderLocal, ScanStatus: models.ScanClean},
		calls:     make(map[string]int),
		parts:     make(map[string][]string),
		templates: make(map[models.RecordID]*models.Template),
		intakes:   make(map[string]*intake),
		files:     make(map[models.RecordID]*storedFile),
		objects:   make(map[string]object),
	}
	s.Storage = httptest.NewServer(s.storageRouter())
	s.API = httptest.NewServer(s.apiRouter())
	s.presign = newPresigner(s.Storage.URL)
	t.Cleanup(func() {
		s.API.Close()
		s.Storage.Close()
	})
	return s
}

// URL is the API root.
func (s *Server) URL() string { return s.API.URL }

// RecruiterToken signs a valid recruiter token for CompanyID.
func (s *Server) RecruiterToken(t testing.TB) string {
	t.Helper()
	tok, err := s.Signer.Sign("recruiter-1", CompanyID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

// Client returns a recruiter client for the fake. Extra options are applied
// after the defaults.
func (s *Server) Client(t testing.TB, opts ...client.Option) *client.Client {
	t.Helper()
	all := append([]client.Option{
		client.WithToken(s.RecruiterToken(t)),
		client.WithCompanyID(CompanyID),
	}, opts...)
	c, err := client.New(s.URL(), all...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// Configure changes the behavior under the server lock.
func (s *Server) Configure(fn func(*Behavior)) {
	s.mu.Lock()
	fn(&s.behavior)
	s.mu.Unlock()
}

func (s *Server) current() Behavior {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.behavior
}

// Calls returns how often the named endpoint was hit.
func (s *Server) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *Server) count(name string) {
	s.mu.Lock()
	s.calls[name]++
	s.mu.Unlock()
}

// Parts returns the multipart part names of the last body the named
// endpoint received, in order.
func (s *Server) Parts(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.parts[name]...)
}

func (s *Server) nextID() models.RecordID {
	s.seq++
	return models.RecordID(strconv.Itoa(s.seq))
}

// AddTemplate stores tpl and returns it with its id.
func (s *Server) AddTemplate(tpl models.Template) models.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	tpl.ID = s.nextID()
	if tpl.Status == "" {
		tpl.Status = models.TemplateDraft
	}
	s.templates[tpl.ID] = &tpl
	s.order = append(s.order, tpl.ID)
	return tpl
}

// Template returns the stored template id.
func (s *Server) Template(id models.RecordID) (models.Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tpl, ok := s.templates[id]
	if !ok {
		return models.Template{}, false
	}
	return *tpl, true
}

// AddIntake invites a candidate to templateID and returns the intake token
// with the new submission. storage is sent as is with the intake.
func (s *Server) AddIntake(templateID models.RecordID, questionnaires []models.QuestionnaireAssignment, storage map[string]any) (string, models.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	sub := &models.Submission{
		ID:          s.nextID(),
		TemplateID:  templateID,
		Status:      models.SubmissionInvited,
		Responses:   map[string]any{},
		Files:       []models.Attachment{},
		IntakeToken: token,
	}
	s.intakes[token] = &intake{token: token, sub: sub, questionnaires: questionnaires, storage: storage}
	return token, snapshot(sub)
}

// Submission returns the current state of the submission behind token.
func (s *Server) Submission(token string) models.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intakes[token]
	if !ok {
		return models.Submission{}
	}
	return snapshot(in.sub)
}

// SetScanStatus moves a stored file to status, as a scanner would.
func (s *Server) SetScanStatus(id models.RecordID, status models.ScanStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sf, ok := s.files[id]
	if !ok {
		return
	}
	sf.att.ScanStatus = status
	if in := s.intakeFor(sf); in != nil {
		attach(in.sub, sf.att)
	}
}

// Object returns the stored bytes of file id.
func (s *Server) Object(id models.RecordID) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sf, ok := s.files[id]
	if !ok {
		return nil, "", false
	}
	obj, ok := s.objects[sf.key]
	return obj.body, obj.contentType, ok
}

func (s *Server) intakeFor(sf *storedFile) *intake {
	return s.intakes[sf.token]
}

func (s *Server) intakeBySubmission(id models.RecordID) *intake {
	for _, in := range s.intakes {
		if in.sub.ID == id {
			return in
		}
	}
	return nil
}

func attach(sub *models.Submission, att models.Attachment) {
	files := make([]models.Attachment, 0, len(sub.Files)+1)
	for _, f := range sub.Files {
		if f.FieldKey != att.FieldKey {
			files = append(files, f)
		}
	}
	sub.Files = append(files, att)
}

func snapshot(sub *models.Submission) models.Submission {
	out := *sub
	out.Files = append([]models.Attachment{}, sub.Files...)
	out.Responses = make(map[string]any, len(sub.Responses))
	for k, v := range sub.Responses {
		out.Responses[k] = v
	}
	return out
}
