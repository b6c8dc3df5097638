// Package ingest holds the external event sources consumed by the carnival
// ingest: the MySideline HTTP API and a YAML file for offline imports.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mastersrl/carnivalhub/internal/config"
	"mastersrl/carnivalhub/internal/model"
)

const (
	externalIDPrefix = "ms-"
	pageSize         = 50
	maxPages         = 40
)

// MySidelineProvider pages through the public MySideline event search.
type MySidelineProvider struct {
	baseURL    string
	searchTerm string
	client     *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func NewMySidelineProvider(cfg config.MySidelineConfig, logger *zap.Logger) *MySidelineProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &MySidelineProvider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		searchTerm: strings.TrimSpace(cfg.SearchTerm),
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger.Named("mysideline"),
	}
}

func (p *MySidelineProvider) Name() string { return "mysideline" }

type sidelinePage struct {
	Events     []sidelineEvent `json:"events"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
}

type sidelineEvent struct {
	ID              json.Number `json:"id"`
	Name            string      `json:"name"`
	StartDate       string      `json:"startDate"`
	State           string      `json:"state"`
	Venue           string      `json:"venue"`
	Description     string      `json:"description"`
	RegistrationURL string      `json:"registrationUrl"`
	Contact         struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"contact"`
}

// Fetch returns every event matching the search term, one request per page.
func (p *MySidelineProvider) Fetch(ctx context.Context) ([]model.ExternalEvent, error) {
	var out []model.ExternalEvent
	for page := 1; page <= maxPages; page++ {
		res, err := p.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		for _, e := range res.Events {
			if !p.matches(e) {
				continue
			}
			out = append(out, toExternal(e))
		}
		if len(res.Events) == 0 || page >= res.TotalPages {
			break
		}
	}
	p.logger.Debug("fetched events", zap.Int("count", len(out)))
	return out, nil
}

func (p *MySidelineProvider) fetchPage(ctx context.Context, page int) (*sidelinePage, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	if p.searchTerm != "" {
		q.Set("search", p.searchTerm)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/events?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build mysideline request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mysideline page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mysideline page %d: unexpected status %d", page, resp.StatusCode)
	}

	var body sidelinePage
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode mysideline page %d: %w", page, err)
	}
	return &body, nil
}

// matches applies the search term locally as well; the upstream search is fuzzy.
func (p *MySidelineProvider) matches(e sidelineEvent) bool {
	if p.searchTerm == "" {
		return true
	}
	term := strings.ToLower(p.searchTerm)
	return strings.Contains(strings.ToLower(e.Name), term) ||
		strings.Contains(strings.ToLower(e.Description), term)
}

func toExternal(e sidelineEvent) model.ExternalEvent {
	ev := model.ExternalEvent{
		Title:                 strings.TrimSpace(e.Name),
		Date:                  parseDate(e.StartDate),
		State:                 parseState(e.State),
		LocationAddress:       e.Venue,
		ScheduleDetails:       e.Description,
		OrganiserContactName:  e.Contact.Name,
		OrganiserContactEmail: e.Contact.Email,
		OrganiserContactPhone: e.Contact.Phone,
		RegistrationLink:      e.RegistrationURL,
	}
	if id := e.ID.String(); id != "" {
		ev.ExternalID = externalIDPrefix + id
	}
	return ev
}

// parseState keeps unrecognised values verbatim so the ingest reports them as failed.
func parseState(raw string) model.State {
	if s, ok := model.ParseState(raw); ok {
		return s
	}
	return model.State(strings.TrimSpace(raw))
}

func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
