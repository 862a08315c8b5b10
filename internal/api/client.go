// Package api is the typed client for the Plant Guardian backend. Every
// response is decoded against a declared schema at the boundary; a malformed
// payload surfaces as a validation error instead of leaking into the UI.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/plantguardian/garden-helper/internal/domain"
	apperrors "github.com/plantguardian/garden-helper/internal/errors"
)

const defaultTimeout = 30 * time.Second

// Client talks to the Plant Guardian REST backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// AuthResult is the normalized outcome of both login and register. The two
// endpoints return differently shaped user objects (login: user_id, register:
// id); callers only ever see this shape.
type AuthResult struct {
	UserID   int
	Username string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message  string `json:"message"`
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type plantRecord struct {
	ID          int    `json:"id"`
	UserID      int    `json:"user_id"`
	PlantName   string `json:"plant_name"`
	Species     string `json:"species"`
	DatePlanted string `json:"date_planted"`
	ImageURL    string `json:"image_url"`
}

type addPlantRequest struct {
	UserID      int    `json:"user_id"`
	PlantName   string `json:"plant_name"`
	Species     string `json:"species"`
	DatePlanted string `json:"date_planted"`
	ImageURL    string `json:"image_url,omitempty"`
}

type growthLog struct {
	ID          int    `json:"id"`
	UserPlantID int    `json:"user_plant_id"`
	Date        string `json:"date"`
	Note        string `json:"note"`
	Status      string `json:"status"`
	ImageURL    string `json:"image_url"`
}

type addLogRequest struct {
	UserPlantID int    `json:"user_plant_id"`
	Date        string `json:"date"`
	Note        string `json:"note"`
	Status      string `json:"status"`
	ImageURL    string `json:"image_url,omitempty"`
}

type treatment struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	CostApprox  string `json:"cost_approx"`
}

type diseaseDetails struct {
	Name       string      `json:"name"`
	Severity   string      `json:"severity"`
	Symptoms   string      `json:"symptoms"`
	Prevention string      `json:"prevention"`
	Treatments []treatment `json:"treatments"`
}

type predictionResponse struct {
	PlantName   string          `json:"plant_name"`
	DiseaseName string          `json:"disease_name"`
	Confidence  float64         `json:"confidence"`
	Details     *diseaseDetails `json:"details"`
}

type uploadResponse struct {
	URL string `json:"url"`
}

type askRequest struct {
	Query string `json:"query"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Login authenticates against the backend.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	var resp loginResponse
	err := c.postJSON(ctx, "/auth/login", loginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &AuthResult{UserID: resp.UserID, Username: resp.Username}, nil
}

// Register creates a backend account. The register response carries "id"
// where login carries "user_id"; both normalize to AuthResult.UserID here.
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	var resp registerResponse
	err := c.postJSON(ctx, "/auth/register", registerRequest{Username: username, Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &AuthResult{UserID: resp.ID, Username: resp.Username}, nil
}

// ListPlants fetches a user's garden.
func (c *Client) ListPlants(ctx context.Context, userID int) ([]domain.PlantRecord, error) {
	var resp []plantRecord
	if err := c.getJSON(ctx, fmt.Sprintf("/my-garden/%d", userID), &resp); err != nil {
		return nil, err
	}
	plants := make([]domain.PlantRecord, 0, len(resp))
	for _, p := range resp {
		plants = append(plants, domain.PlantRecord{
			ID:          p.ID,
			UserID:      p.UserID,
			Name:        p.PlantName,
			Species:     p.Species,
			DatePlanted: p.DatePlanted,
			ImageURL:    p.ImageURL,
		})
	}
	return plants, nil
}

// AddPlant creates a plant record in the user's garden.
func (c *Client) AddPlant(ctx context.Context, userID int, name, species, datePlanted, imageURL string) (*domain.PlantRecord, error) {
	var resp plantRecord
	req := addPlantRequest{
		UserID:      userID,
		PlantName:   name,
		Species:     species,
		DatePlanted: datePlanted,
		ImageURL:    imageURL,
	}
	if err := c.postJSON(ctx, "/my-garden/add", req, &resp); err != nil {
		return nil, err
	}
	return &domain.PlantRecord{
		ID:          resp.ID,
		UserID:      resp.UserID,
		Name:        resp.PlantName,
		Species:     resp.Species,
		DatePlanted: resp.DatePlanted,
		ImageURL:    resp.ImageURL,
	}, nil
}

// DeletePlant removes a plant. Irreversible from the client's perspective.
func (c *Client) DeletePlant(ctx context.Context, plantID int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+fmt.Sprintf("/my-garden/%d", plantID), nil)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if _, err := c.do(req); err != nil {
		return err
	}
	return nil
}

// ListLogs fetches the growth log of a plant.
func (c *Client) ListLogs(ctx context.Context, plantID int) ([]domain.GrowthLogEntry, error) {
	var resp []growthLog
	if err := c.getJSON(ctx, fmt.Sprintf("/my-garden/logs/%d", plantID), &resp); err != nil {
		return nil, err
	}
	logs := make([]domain.GrowthLogEntry, 0, len(resp))
	for _, l := range resp {
		logs = append(logs, domain.GrowthLogEntry{
			ID:       l.ID,
			PlantID:  l.UserPlantID,
			Date:     l.Date,
			Note:     l.Note,
			Status:   l.Status,
			ImageURL: l.ImageURL,
		})
	}
	return logs, nil
}

// AddLog appends a growth log entry to a plant.
func (c *Client) AddLog(ctx context.Context, plantID int, date, note, status, imageURL string) (*domain.GrowthLogEntry, error) {
	var resp growthLog
	req := addLogRequest{
		UserPlantID: plantID,
		Date:        date,
		Note:        note,
		Status:      status,
		ImageURL:    imageURL,
	}
	if err := c.postJSON(ctx, "/my-garden/logs/add", req, &resp); err != nil {
		return nil, err
	}
	return &domain.GrowthLogEntry{
		ID:       resp.ID,
		PlantID:  resp.UserPlantID,
		Date:     resp.Date,
		Note:     resp.Note,
		Status:   resp.Status,
		ImageURL: resp.ImageURL,
	}, nil
}

// Upload stores an image on the backend and returns its public URL.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	var resp uploadResponse
	if err := c.postMultipart(ctx, "/upload", filename, data, nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// Predict sends an image for disease diagnosis.
func (c *Client) Predict(ctx context.Context, filename string, data []byte, language string) (*domain.DiagnosisResult, error) {
	var resp predictionResponse
	fields := map[string]string{"language": language}
	if err := c.postMultipart(ctx, "/predict", filename, data, fields, &resp); err != nil {
		return nil, err
	}
	result := &domain.DiagnosisResult{
		PlantName:   resp.PlantName,
		DiseaseName: resp.DiseaseName,
		Confidence:  resp.Confidence,
	}
	if resp.Details != nil {
		details := &domain.DiseaseDetails{
			Name:       resp.Details.Name,
			Severity:   resp.Details.Severity,
			Symptoms:   resp.Details.Symptoms,
			Prevention: resp.Details.Prevention,
		}
		for _, t := range resp.Details.Treatments {
			details.Treatments = append(details.Treatments, domain.Treatment{
				Type:        t.Type,
				Description: t.Description,
				CostApprox:  t.CostApprox,
			})
		}
		result.Details = details
	}
	return result, nil
}

// Ask forwards a free-text question to the backend Q&A service.
func (c *Client) Ask(ctx context.Context, query string) (string, error) {
	var resp askResponse
	if err := c.postJSON(ctx, "/ask-google", askRequest{Query: query}, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	return decode(path, body, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	body, err := c.do(req)
	if err != nil {
		return err
	}
	return decode(path, body, out)
}

func (c *Client) postMultipart(ctx context.Context, path, filename string, data []byte, fields map[string]string, out interface{}) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if _, err := part.Write(data); err != nil {
		return apperrors.NewInternalError(err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return apperrors.NewInternalError(err)
		}
	}
	if err := writer.Close(); err != nil {
		return apperrors.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, &buf)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	body, err := c.do(req)
	if err != nil {
		return err
	}
	return decode(path, body, out)
}

// do executes the request and maps transport and status failures onto the
// error taxonomy. The body is returned for decoding on success.
func (c *Client) do(req *http.Request) ([]byte, error) {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError(err).WithContext("path", req.URL.Path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetworkError(err).WithContext("path", req.URL.Path)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	detail := backendDetail(body)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.NewNotFoundError(detail).WithContext("path", req.URL.Path)
	case resp.StatusCode == http.StatusBadRequest && strings.HasPrefix(req.URL.Path, "/auth/"):
		return nil, apperrors.NewAuthError(detail)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, apperrors.NewValidationError(detail)
	default:
		return nil, apperrors.New(apperrors.ErrorTypeExternal, "BACKEND",
			fmt.Sprintf("backend request failed with status %d", resp.StatusCode)).
			WithContext("path", req.URL.Path).
			WithContext("detail", detail)
	}
}

func decode(path string, body []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeValidation, "BAD_RESPONSE",
			fmt.Sprintf("malformed response from %s", path))
	}
	return nil
}

func backendDetail(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Detail != "" {
		return resp.Detail
	}
	return "request rejected by backend"
}
