package service

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sxxm/medcheck/backend/internal/metrics"
)

const (
	defaultRegistryTimeout     = 10 * time.Second
	defaultRegistryConcurrency = 4
)

// MedicationRecord is the ingredient profile of a single medication
type MedicationRecord struct {
	Name              string   `json:"name"`
	ActiveIngredients []string `json:"active_ingredients"`
	Excipients        []string `json:"excipients"`
	Description       string   `json:"description"`
	Manufacturer      string   `json:"manufacturer"`

	outcome lookupOutcome
}

// Found reports whether the record came from a successful registry lookup
func (r MedicationRecord) Found() bool {
	return r.outcome == outcomeFound
}

// Ingredients returns actives followed by excipients
func (r MedicationRecord) Ingredients() []string {
	return uniqueStrings(r.ActiveIngredients, r.Excipients)
}

type lookupOutcome string

const (
	outcomeFound         lookupOutcome = "found"
	outcomeNotConfigured lookupOutcome = "not_configured"
	outcomeNotFound      lookupOutcome = "not_found"
	outcomeTimeout       lookupOutcome = "timeout"
	outcomeTransport     lookupOutcome = "transport_error"
	outcomeServerError   lookupOutcome = "server_error"
	outcomeHTTPNotFound  lookupOutcome = "http_not_found"
	outcomeAuthFailure   lookupOutcome = "auth_failure"
	outcomeClientError   lookupOutcome = "client_error"
	outcomeEmptyPayload  lookupOutcome = "empty_payload"
	outcomeUnparseable   lookupOutcome = "unparseable"
)

var fallbackDescriptions = map[lookupOutcome]string{
	outcomeNotConfigured: "Medication registry is not configured; ingredient information is unavailable.",
	outcomeNotFound:      "No ingredient information was found for this medication.",
}

func fallbackRecord(name string, outcome lookupOutcome) MedicationRecord {
	description, ok := fallbackDescriptions[outcome]
	if !ok {
		description = "Ingredient information could not be retrieved from the medication registry."
	}
	return MedicationRecord{
		Name:              name,
		ActiveIngredients: []string{},
		Excipients:        []string{},
		Description:       description,
		outcome:           outcome,
	}
}

// RegistryConfig holds the drug registry connection settings
type RegistryConfig struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64
	Concurrency   int
}

// MedicationService resolves medication names against the public drug registry
type MedicationService struct {
	client      *resty.Client
	cfg         RegistryConfig
	limiter     *rate.Limiter
	cache       MedicationCache
	logger      *zap.Logger
	concurrency int
}

// NewMedicationService creates a registry client. cache may be nil.
func NewMedicationService(cfg RegistryConfig, cache MedicationCache, logger *zap.Logger) *MedicationService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRegistryTimeout
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultRegistryConcurrency
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &MedicationService{
		client:      client,
		cfg:         cfg,
		limiter:     rate.NewLimiter(limit, 1),
		cache:       cache,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Resolve looks up one medication. Every failure degrades to a fallback record with empty
// ingredient lists.
func (s *MedicationService) Resolve(ctx context.Context, name string) MedicationRecord {
	name = strings.TrimSpace(name)

	if s.cfg.BaseURL == "" || s.cfg.APIKey == "" {
		s.logger.Warn("medication registry not configured", zap.String("medication", name))
		metrics.RecordExternalCall(metrics.DependencyRegistry, string(outcomeNotConfigured), 0)
		return fallbackRecord(name, outcomeNotConfigured)
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, name); ok {
			metrics.RecordCacheLookup(true)
			cached.outcome = outcomeFound
			return *cached
		}
		metrics.RecordCacheLookup(false)
	}

	start := time.Now()
	record, outcome := s.lookup(ctx, name)
	metrics.RecordExternalCall(metrics.DependencyRegistry, string(outcome), time.Since(start))

	if outcome != outcomeFound {
		s.logger.Info("medication lookup degraded",
			zap.String("medication", name),
			zap.String("outcome", string(outcome)),
		)
		return fallbackRecord(name, outcome)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, name, record); err != nil {
			s.logger.Warn("failed to cache medication record", zap.String("medication", name), zap.Error(err))
		}
	}
	return record
}

// ResolveAll resolves names concurrently and returns records in input order
func (s *MedicationService) ResolveAll(ctx context.Context, names []string) []MedicationRecord {
	records := make([]MedicationRecord, len(names))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, name := range names {
		g.Go(func() error {
			records[i] = s.Resolve(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	return records
}

func (s *MedicationService) lookup(ctx context.Context, name string) (MedicationRecord, lookupOutcome) {
	if err := s.limiter.Wait(ctx); err != nil {
		return MedicationRecord{}, classifyTransportError(err)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"serviceKey": s.cfg.APIKey,
			"itemName":   name,
			"type":       "json",
			"pageNo":     "1",
			"numOfRows":  "1",
		}).
		Get(s.cfg.BaseURL)
	if err != nil {
		s.logger.Debug("registry request failed", zap.String("medication", name), zap.Error(err))
		return MedicationRecord{}, classifyTransportError(err)
	}

	if resp.IsError() {
		return MedicationRecord{}, classifyStatus(resp.StatusCode())
	}

	body := resp.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return MedicationRecord{}, outcomeEmptyPayload
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return MedicationRecord{}, outcomeUnparseable
	}

	item := firstRegistryItem(payload)
	if item == nil {
		return MedicationRecord{}, outcomeNotFound
	}

	return parseRegistryItem(name, item)
}

func classifyTransportError(err error) lookupOutcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return outcomeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return outcomeTimeout
	}
	return outcomeTransport
}

func classifyStatus(status int) lookupOutcome {
	switch {
	case status >= http.StatusInternalServerError:
		return outcomeServerError
	case status == http.StatusNotFound:
		return outcomeHTTPNotFound
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return outcomeAuthFailure
	default:
		return outcomeClientError
	}
}

// firstRegistryItem digs the first item out of either {body:{items}} or {response:{body:{items}}}.
// items may be an array, a single object, or an object wrapping "item".
func firstRegistryItem(payload interface{}) map[string]interface{} {
	root, ok := payload.(map[string]interface{})
	if !ok {
		return nil
	}

	body, ok := root["body"].(map[string]interface{})
	if !ok {
		response, ok := root["response"].(map[string]interface{})
		if !ok {
			return nil
		}
		if body, ok = response["body"].(map[string]interface{}); !ok {
			return nil
		}
	}

	return firstItem(body["items"])
}

func firstItem(items interface{}) map[string]interface{} {
	switch v := items.(type) {
	case []interface{}:
		if len(v) == 0 {
			return nil
		}
		return firstItem(v[0])
	case map[string]interface{}:
		if inner, ok := v["item"]; ok && len(v) == 1 {
			return firstItem(inner)
		}
		return v
	default:
		return nil
	}
}

type registryField struct {
	keys []string
	set  func(r *MedicationRecord, value string)
}

// registryFields lists the accepted spellings of each registry field in priority order
var registryFields = []registryField{
	{
		keys: []string{"itemName", "ITEM_NAME", "item_name", "ItemName"},
		set:  func(r *MedicationRecord, v string) { r.Name = v },
	},
	{
		keys: []string{"entpName", "ENTP_NAME", "entp_name", "EntpName"},
		set:  func(r *MedicationRecord, v string) { r.Manufacturer = v },
	},
	{
		keys: []string{"mainItemIngr", "MAIN_ITEM_INGR", "main_item_ingr", "mainIngr", "MAIN_INGR", "itemIngrName", "ITEM_INGR_NAME"},
		set:  func(r *MedicationRecord, v string) { r.ActiveIngredients = SplitIngredientText(v) },
	},
	{
		keys: []string{"ingrName", "INGR_NAME", "ingr_name", "excipient", "EXCIPIENT", "addItemIngr"},
		set:  func(r *MedicationRecord, v string) { r.Excipients = SplitIngredientText(v) },
	},
	{
		keys: []string{"efcyQesitm", "EE_DOC_DATA", "description", "DESCRIPTION", "efcy_qesitm"},
		set:  func(r *MedicationRecord, v string) { r.Description = v },
	},
}

func parseRegistryItem(queried string, item map[string]interface{}) (MedicationRecord, lookupOutcome) {
	record := MedicationRecord{
		Name:              queried,
		ActiveIngredients: []string{},
		Excipients:        []string{},
	}

	for _, field := range registryFields {
		for _, key := range field.keys {
			if value, ok := item[key].(string); ok && strings.TrimSpace(value) != "" {
				field.set(&record, strings.TrimSpace(value))
				break
			}
		}
	}

	// A record with no ingredient text at all is indistinguishable from a miss.
	if len(record.ActiveIngredients) == 0 && len(record.Excipients) == 0 {
		return MedicationRecord{}, outcomeNotFound
	}

	record.outcome = outcomeFound
	return record, outcomeFound
}
