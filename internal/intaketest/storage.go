package intaketest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/uc4u2/candidate-intake/internal/models"
)

const (
	accessKeyID     = "AKIAINTAKETEST"
	secretAccessKey = "intaketest-storage-secret"
	presignTTL      = 15 * time.Minute
)

func newPresigner(endpoint string) *s3.PresignClient {
	cfg := aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return s3.NewPresignClient(client)
}

// objectDescriptor builds the direct-to-storage descriptor for key. PUT uses
// a SigV4 presigned URL; POST uses a signed policy form.
func (s *Server) objectDescriptor(ctx context.Context, key, contentType, method string) (models.UploadDescriptor, error) {
	if strings.EqualFold(method, http.MethodPut) {
		req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(Bucket),
			Key:         aws.String(key),
			ContentType: aws.String(contentType),
		}, s3.WithPresignExpires(presignTTL))
		if err != nil {
			return models.UploadDescriptor{}, err
		}
		headers := make(map[string]string)
		for k, v := range req.SignedHeader {
			if strings.EqualFold(k, "Host") || len(v) == 0 {
				continue
			}
			headers[k] = v[0]
		}
		return models.UploadDescriptor{
			Provider: models.ProviderS3,
			URL:      req.URL,
			Method:   req.Method,
			Headers:  headers,
		}, nil
	}

	policy, err := json.Marshal(map[string]any{
		"expiration": time.Now().Add(presignTTL).UTC().Format(time.RFC3339),
		"conditions": []any{
			map[string]string{"bucket": Bucket},
			map[string]string{"key": key},
		},
	})
	if err != nil {
		return models.UploadDescriptor{}, err
	}
	encoded := base64.StdEncoding.EncodeToString(policy)
	return models.UploadDescriptor{
		Provider: models.ProviderS3,
		URL:      s.Storage.URL + "/" + Bucket,
		Method:   http.MethodPost,
		Fields: map[string]string{
			"key":              key,
			"Content-Type":     contentType,
			"policy":           encoded,
			"x-amz-algorithm":  "AWS4-HMAC-SHA256",
			"x-amz-credential": accessKeyID,
			"x-amz-signature":  signPolicy(encoded),
		},
	}, nil
}

func (s *Server) downloadLink(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func signPolicy(policy string) string {
	mac := hmac.New(sha256.New, []byte(secretAccessKey))
	mac.Write([]byte(policy))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Server) storageRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog("storage"), s.storageAuth())
	r.PUT("/:bucket/*key", s.putObject)
	r.POST("/:bucket", s.postObject)
	r.GET("/:bucket/*key", s.getObject)
	return r
}

// storageAuth rejects API credentials; storage only trusts signatures.
func (s *Server) storageAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" || c.GetHeader("X-Company-Id") != "" {
			s.count("storage.leaked_credentials")
			storageError(c, http.StatusBadRequest, "InvalidArgument", "Only one auth mechanism allowed")
			return
		}
		if c.Param("bucket") != Bucket {
			storageError(c, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
			return
		}
		c.Next()
	}
}

func (s *Server) putObject(c *gin.Context) {
	s.count("storage.put")
	if c.Query("X-Amz-Signature") == "" || c.Query("X-Amz-Credential") == "" {
		storageError(c, http.StatusForbidden, "AccessDenied", "Request is not signed")
		return
	}
	if msg := s.current().FailStorage; msg != "" {
		storageError(c, http.StatusForbidden, "AccessDenied", msg)
		return
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		storageError(c, http.StatusBadRequest, "IncompleteBody", err.Error())
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	s.mu.Lock()
	s.objects[key] = object{body: data, contentType: c.GetHeader("Content-Type")}
	s.mu.Unlock()
	c.Status(http.StatusOK)
}

func (s *Server) postObject(c *gin.Context) {
	s.count("storage.post")
	form, err := readMultipart(c.Request)
	if err != nil {
		storageError(c, http.StatusBadRequest, "MalformedPOSTRequest", err.Error())
		return
	}
	s.mu.Lock()
	s.parts["storage.post"] = form.names
	s.mu.Unlock()

	policy := form.values["policy"]
	if policy == "" || !hmac.Equal([]byte(signPolicy(policy)), []byte(form.values["x-amz-signature"])) {
		storageError(c, http.StatusForbidden, "AccessDenied", "Invalid according to Policy: Policy Condition failed")
		return
	}
	if msg := s.current().FailStorage; msg != "" {
		storageError(c, http.StatusForbidden, "AccessDenied", msg)
		return
	}
	if form.file == nil || form.values["key"] == "" {
		storageError(c, http.StatusBadRequest, "InvalidArgument", "POST requires exactly one file upload per request.")
		return
	}
	ct := form.values["Content-Type"]
	if ct == "" {
		ct = form.contentType
	}
	s.mu.Lock()
	s.objects[form.values["key"]] = object{body: form.file, contentType: ct}
	s.mu.Unlock()
	c.Status(http.StatusNoContent)
}

func (s *Server) getObject(c *gin.Context) {
	s.count("storage.get")
	if c.Query("X-Amz-Signature") == "" {
		storageError(c, http.StatusForbidden, "AccessDenied", "Request is not signed")
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	s.mu.Lock()
	obj, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		storageError(c, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
		return
	}
	c.Data(http.StatusOK, obj.contentType, obj.body)
}

type storageErrorBody struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

func storageError(c *gin.Context, status int, code, message string) {
	body, _ := xml.Marshal(storageErrorBody{Code: code, Message: message})
	c.Data(status, "application/xml", append([]byte(xml.Header), body...))
	c.Abort()
}
