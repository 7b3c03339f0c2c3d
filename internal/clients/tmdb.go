package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amaumene/streamscout/internal/domain"
	"github.com/google/go-querystring/query"
)

const (
	tmdbDateLayout   = "2006-01-02"
	maxErrorBodySize = 512
)

type TMDBClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type tmdbParams struct {
	APIKey string `url:"api_key"`
}

type tmdbShow struct {
	ID               int64        `json:"id"`
	Name             string       `json:"name"`
	NextEpisodeToAir *tmdbEpisode `json:"next_episode_to_air"`
}

type tmdbEpisode struct {
	AirDate       string `json:"air_date"`
	Name          string `json:"name"`
	SeasonNumber  int64  `json:"season_number"`
	EpisodeNumber int64  `json:"episode_number"`
}

func NewTMDBClient(baseURL, apiKey string, timeout time.Duration) *TMDBClient {
	return &TMDBClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchShow returns the next-episode facts of a TV show. Every failure is a
// *domain.MetadataError carrying the subject id.
func (c *TMDBClient) FetchShow(ctx context.Context, subjectID int64) (*domain.SubjectFact, error) {
	show, err := c.getShow(ctx, subjectID)
	if err != nil {
		return nil, &domain.MetadataError{SubjectID: subjectID, Err: err}
	}
	return buildFact(subjectID, show), nil
}

func (c *TMDBClient) getShow(ctx context.Context, subjectID int64) (*tmdbShow, error) {
	values, err := query.Values(tmdbParams{APIKey: c.apiKey})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}
	url := fmt.Sprintf("%s/3/tv/%d?%s", c.baseURL, subjectID, values.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrUnknownSubject
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var show tmdbShow
	if err := json.NewDecoder(resp.Body).Decode(&show); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if show.ID == 0 && show.Name == "" {
		return nil, errors.New("malformed response: missing show id and name")
	}
	return &show, nil
}

func buildFact(subjectID int64, show *tmdbShow) *domain.SubjectFact {
	fact := &domain.SubjectFact{
		SubjectID: subjectID,
		ShowName:  show.Name,
	}
	next := show.NextEpisodeToAir
	if next == nil {
		return fact
	}

	fact.EpisodeName = next.Name
	fact.SeasonNumber = next.SeasonNumber
	fact.EpisodeNumber = next.EpisodeNumber
	if airDate, err := time.ParseInLocation(tmdbDateLayout, next.AirDate, time.UTC); err == nil {
		fact.AirDate = &airDate
	}
	return fact
}
