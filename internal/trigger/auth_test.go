package trigger

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Orbita/internal/domain"
)

func webhookTrigger(workflowID uuid.UUID) *domain.Trigger {
	return testTrigger(workflowID, domain.TriggerTypeWebhook)
}

func webhookRequest(method string, body []byte) *WebhookRequest {
	return &WebhookRequest{
		Method:     method,
		RemoteAddr: "203.0.113.7:51234",
		Headers:    http.Header{},
		Query:      url.Values{},
		Body:       body,
	}
}

func TestAuthenticateMethodDefaultsToPost(t *testing.T) {
	auth := NewAuthenticator()
	trig := webhookTrigger(uuid.New())

	if err := auth.Authenticate(trig, webhookRequest(http.MethodPost, nil)); err != nil {
		t.Errorf("POST rejected: %v", err)
	}

	err := auth.Authenticate(trig, webhookRequest(http.MethodGet, nil))
	if !errors.Is(err, ErrMethodNotAllowed) {
		t.Errorf("expected ErrMethodNotAllowed, got %v", err)
	}
}

func TestAuthenticateAllowedMethods(t *testing.T) {
	auth := NewAuthenticator()
	trig := webhookTrigger(uuid.New())
	trig.Config.AllowedMethods = []string{"PUT", "POST"}

	if err := auth.Authenticate(trig, webhookRequest(http.MethodPut, nil)); err != nil {
		t.Errorf("PUT rejected: %v", err)
	}
	if err := auth.Authenticate(trig, webhookRequest(http.MethodDelete, nil)); !errors.Is(err, ErrMethodNotAllowed) {
		t.Errorf("expected ErrMethodNotAllowed, got %v", err)
	}
}

func TestAuthenticateIPAllowlist(t *testing.T) {
	auth := NewAuthenticator()
	trig := webhookTrigger(uuid.New())
	trig.Config.IPAllowlist = []string{"198.51.100.1"}

	req := webhookRequest(http.MethodPost, nil)
	err := auth.Authenticate(trig, req)
	if !errors.Is(err, ErrIPNotAllowed) {
		t.Errorf("expected ErrIPNotAllowed, got %v", err)
	}

	// первый адрес X-Forwarded-For имеет приоритет
	req.Headers.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	if err := auth.Authenticate(trig, req); err != nil {
		t.Errorf("allowed ip rejected: %v", err)
	}

	req.Headers.Del("X-Forwarded-For")
	req.Headers.Set("X-Real-IP", "198.51.100.1")
	if err := auth.Authenticate(trig, req); err != nil {
		t.Errorf("X-Real-IP not honored: %v", err)
	}
}

func TestAuthenticateRequiredHeaders(t *testing.T) {
	auth := NewAuthenticator()
	trig := webhookTrigger(uuid.New())
	trig.Config.RequiredHeaders = map[string]string{"X-Source": "satellite-gateway"}

	req := webhookRequest(http.MethodPost, nil)
	if err := auth.Authenticate(trig, req); !errors.Is(err, ErrHeaderMissing) {
		t.Errorf("expected ErrHeaderMissing, got %v", err)
	}

	req.Headers.Set("X-Source", "wrong")
	if err := auth.Authenticate(trig, req); !errors.Is(err, ErrHeaderMissing) {
		t.Errorf("expected ErrHeaderMissing for wrong value, got %v", err)
	}

	req.Headers.Set("X-Source", "satellite-gateway")
	if err := auth.Authenticate(trig, req); err != nil {
		t.Errorf("matching header rejected: %v", err)
	}
}

func TestAuthenticateSecret(t *testing.T) {
	auth := NewAuthenticator()
	trig := webhookTrigger(uuid.New())
	trig.Config.WebhookSecret = "s3cret"

	req := webhookRequest(http.MethodPost, nil)
	if err := auth.Authenticate(trig, req); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed without credentials, got %v", err)
	}

	req.Headers.Set("X-Webhook-Secret", "wrong")
	if err := auth.Authenticate(trig, req); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed for wrong secret, got %v", err)
	}

	req.Headers.Set("X-Webhook-Secret", "s3cret")
	if err := auth.Authenticate(trig, req); err != nil {
		t.Errorf("valid secret rejected: %v", err)
	}
}

func TestAuthenticateSignature(t *testing.T) {
	auth := NewAuthenticator()
	trig := webhookTrigger(uuid.New())
	trig.Config.WebhookSecret = "s3cret"

	body := []byte(`{"scene_id":"S2A"}`)
	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write(body)
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req := webhookRequest(http.MethodPost, body)
	req.Headers.Set("X-Webhook-Signature", signature)
	if err := auth.Authenticate(trig, req); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}

	tampered := webhookRequest(http.MethodPost, []byte(`{"scene_id":"S2B"}`))
	tampered.Headers.Set("X-Webhook-Signature", signature)
	if err := auth.Authenticate(trig, tampered); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed for tampered body, got %v", err)
	}
}

func TestGenerateSecret(t *testing.T) {
	first, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	second, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("secret length = %d, want 64 hex chars", len(first))
	}
	if first == second {
		t.Error("secrets must be unique")
	}
}

// --- WebhookProcessor ---

func testWebhookProcessor(store *memTriggerStore, workflows *memWorkflowStore, starter *fakeStarter) *WebhookProcessor {
	return NewWebhookProcessor(WebhookConfig{
		Triggers:  store,
		Activator: testActivator(store, workflows, starter),
		Logger:    slog.Default(),
	})
}

func TestWebhookProcessRunsWorkflow(t *testing.T) {
	workflow := testWorkflow()
	trig := webhookTrigger(workflow.ID)
	trig.Config.QueryParamMapping = map[string]string{"field": "field_id"}

	store := newMemTriggerStore(trig)
	starter := &fakeStarter{}
	processor := testWebhookProcessor(store, &memWorkflowStore{workflows: map[uuid.UUID]*domain.Workflow{workflow.ID: workflow}}, starter)

	req := webhookRequest(http.MethodPost, []byte(`{"scene_id":"S2A","cloud":12}`))
	req.Query.Set("field", "field-42")

	result, err := processor.Process(context.Background(), trig.ID, req)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.Execution == nil {
		t.Fatal("expected execution in result")
	}
	if result.Async {
		t.Error("expected synchronous processing by default")
	}

	call := starter.last()
	if !call.sync {
		t.Error("default webhook mode must wait for completion")
	}
	if call.inputs["scene_id"] != "S2A" {
		t.Error("body field not propagated to inputs")
	}
	if call.inputs["field_id"] != "field-42" {
		t.Error("query mapping not applied")
	}
}

func TestWebhookProcessPathParamMapping(t *testing.T) {
	workflow := testWorkflow()
	trig := webhookTrigger(workflow.ID)
	trig.Config.PathParamMapping = map[string]string{
		"param1": "region",
		"param2": "field_id",
	}
	trig.Config.QueryParamMapping = map[string]string{"field": "field_id"}

	store := newMemTriggerStore(trig)
	starter := &fakeStarter{}
	processor := testWebhookProcessor(store, &memWorkflowStore{workflows: map[uuid.UUID]*domain.Workflow{workflow.ID: workflow}}, starter)

	req := webhookRequest(http.MethodPost, nil)
	req.PathParams = map[string]string{"param1": "aral-basin", "param2": "field-7"}

	if _, err := processor.Process(context.Background(), trig.ID, req); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	call := starter.last()
	if call.inputs["region"] != "aral-basin" {
		t.Errorf("path mapping not applied: %v", call.inputs)
	}
	if call.inputs["field_id"] != "field-7" {
		t.Errorf("second path segment not applied: %v", call.inputs)
	}

	// query перекрывает path при совпадении имени входного параметра
	req.Query.Set("field", "field-42")
	if _, err := processor.Process(context.Background(), trig.ID, req); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if got := starter.last().inputs["field_id"]; got != "field-42" {
		t.Errorf("query must override path value, got %v", got)
	}
}

func TestWebhookProcessBodyMapping(t *testing.T) {
	workflow := testWorkflow()
	trig := webhookTrigger(workflow.ID)
	trig.Config.BodyMapping = map[string]string{"scene_id": "scene"}

	store := newMemTriggerStore(trig)
	starter := &fakeStarter{}
	processor := testWebhookProcessor(store, &memWorkflowStore{workflows: map[uuid.UUID]*domain.Workflow{workflow.ID: workflow}}, starter)

	req := webhookRequest(http.MethodPost, []byte(`{"scene_id":"S2A","noise":true}`))
	if _, err := processor.Process(context.Background(), trig.ID, req); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	call := starter.last()
	if call.inputs["scene"] != "S2A" {
		t.Error("body mapping not applied")
	}
	if _, ok := call.inputs["noise"]; ok {
		t.Error("unmapped body field must not leak into inputs")
	}
}

func TestWebhookProcessAsyncMode(t *testing.T) {
	workflow := testWorkflow()
	trig := webhookTrigger(workflow.ID)
	trig.Config.Async = true

	store := newMemTriggerStore(trig)
	starter := &fakeStarter{}
	processor := testWebhookProcessor(store, &memWorkflowStore{workflows: map[uuid.UUID]*domain.Workflow{workflow.ID: workflow}}, starter)

	result, err := processor.Process(context.Background(), trig.ID, webhookRequest(http.MethodPost, nil))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !result.Async {
		t.Error("expected async result")
	}
	if starter.last().sync {
		t.Error("async webhook must not wait for completion")
	}
}

func TestWebhookRejectionCreatesNoExecution(t *testing.T) {
	workflow := testWorkflow()
	trig := webhookTrigger(workflow.ID)
	trig.Config.WebhookSecret = "s3cret"

	store := newMemTriggerStore(trig)
	starter := &fakeStarter{}
	processor := testWebhookProcessor(store, &memWorkflowStore{workflows: map[uuid.UUID]*domain.Workflow{workflow.ID: workflow}}, starter)

	_, err := processor.Process(context.Background(), trig.ID, webhookRequest(http.MethodPost, nil))
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
	if starter.count() != 0 {
		t.Error("rejected webhook must not start workflow")
	}

	saved := store.get(trig.ID)
	if saved.ExecutionCount != 0 {
		t.Error("rejected webhook must not touch execution stats")
	}
}

func TestWebhookProcessWrongType(t *testing.T) {
	workflow := testWorkflow()
	trig := testTrigger(workflow.ID, domain.TriggerTypeScheduled)

	store := newMemTriggerStore(trig)
	starter := &fakeStarter{}
	processor := testWebhookProcessor(store, &memWorkflowStore{workflows: map[uuid.UUID]*domain.Workflow{workflow.ID: workflow}}, starter)

	_, err := processor.Process(context.Background(), trig.ID, webhookRequest(http.MethodPost, nil))
	if !errors.Is(err, ErrWrongTriggerType) {
		t.Errorf("expected ErrWrongTriggerType, got %v", err)
	}
}

func TestWebhookProcessUnknownTrigger(t *testing.T) {
	store := newMemTriggerStore()
	starter := &fakeStarter{}
	processor := testWebhookProcessor(store, &memWorkflowStore{workflows: map[uuid.UUID]*domain.Workflow{}}, starter)

	_, err := processor.Process(context.Background(), uuid.New(), webhookRequest(http.MethodPost, nil))
	if !errors.Is(err, ErrTriggerNotFound) {
		t.Errorf("expected ErrTriggerNotFound, got %v", err)
	}
}
