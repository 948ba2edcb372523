package api

import (
	"context"
	"fmt"
	"time"

	"halo-watcher/internal/config"
	"halo-watcher/internal/domain"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

const (
	statsBaseURL     = "https://halostats.svc.halowaypoint.com"
	skillBaseURL     = "https://skill.svc.halowaypoint.com"
	discoveryBaseURL = "https://discovery-infiniteugc.svc.halowaypoint.com"

	// Clearance the public Waypoint frontend sends on discovery calls.
	discoveryClearance = "ff0701e7-732d-476a-bded-2ff50cf7320e"
)

// WaypointClient talks to the Halo Waypoint services for a single player.
// It classifies failures (see errors.go) and performs no local writes.
type WaypointClient struct {
	token      string
	playerXUID string
	client     *fasthttp.Client
}

func NewWaypointClient(cfg *config.Config) *WaypointClient {
	return &WaypointClient{
		token:      cfg.SpartanToken,
		playerXUID: cfg.PlayerXUID,
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// ListMatches returns the player's most recent matches, newest first.
// An empty Results slice is a valid answer, not an error.
func (c *WaypointClient) ListMatches(ctx context.Context, count int) (*MatchListResponse, error) {
	url := fmt.Sprintf("%s/hi/players/xuid(%s)/matches?count=%d&type=All", statsBaseURL, c.playerXUID, count)
	return doRequest[MatchListResponse](ctx, c, url, nil)
}

// FetchSkill returns the skill recap for one match, or ErrStatsNotReady
// when the service has not computed the rank recap yet.
func (c *WaypointClient) FetchSkill(ctx context.Context, matchID string) (*SkillResult, error) {
	url := fmt.Sprintf("%s/hi/matches/%s/skill?players=xuid(%s)", skillBaseURL, matchID, c.playerXUID)
	resp, err := doRequest[SkillResponse](ctx, c, url, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Value) == 0 || resp.Value[0].Result.RankRecap == nil {
		return nil, ErrStatsNotReady
	}
	return &resp.Value[0].Result, nil
}

// FetchAsset resolves one version of a map or mode asset from the UGC
// discovery service. Missing assets surface as ErrNotFound.
func (c *WaypointClient) FetchAsset(ctx context.Context, kind domain.AssetKind, assetID, versionID string) (*AssetResponse, error) {
	url := fmt.Sprintf("%s/hi/%s/%s/versions/%s", discoveryBaseURL, kind, assetID, versionID)
	extra := map[string]string{"343-clearance": discoveryClearance}
	return doRequest[AssetResponse](ctx, c, url, extra)
}

func doRequest[T any](ctx context.Context, client *WaypointClient, url string, extraHeaders map[string]string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-343-authorization-spartan", client.token)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = client.client.DoDeadline(req, resp, deadline)
	} else {
		err = client.client.Do(req, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("waypoint: request failed for %s: %w", url, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, classifyStatus(resp.StatusCode(), url)
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("waypoint: decode failed for %s: %w", url, err)
	}
	return &result, nil
}

type MatchListResponse struct {
	Start       int           `json:"Start"`
	Count       int           `json:"Count"`
	ResultCount int           `json:"ResultCount"`
	Results     []MatchResult `json:"Results"`
}

type MatchResult struct {
	MatchID   string    `json:"MatchId"`
	MatchInfo MatchInfo `json:"MatchInfo"`
	Outcome   int       `json:"Outcome"`
	Rank      int       `json:"Rank"`
}

type MatchInfo struct {
	StartTime          time.Time `json:"StartTime"`
	EndTime            time.Time `json:"EndTime"`
	Duration           string    `json:"Duration"`
	Playlist           AssetLink `json:"Playlist"`
	MapVariant         AssetLink `json:"MapVariant"`
	UgcGameVariant     AssetLink `json:"UgcGameVariant"`
	TeamsEnabled       bool      `json:"TeamsEnabled"`
	TeamScoringEnabled bool      `json:"TeamScoringEnabled"`
}

type AssetLink struct {
	AssetID   string `json:"AssetId"`
	VersionID string `json:"VersionId"`
}

type SkillResponse struct {
	Value []SkillValue `json:"Value"`
}

type SkillValue struct {
	ID     string      `json:"Id"`
	Result SkillResult `json:"Result"`
}

type SkillResult struct {
	TeamID    int        `json:"TeamId"`
	TeamMmr   float64    `json:"TeamMmr"`
	RankRecap *RankRecap `json:"RankRecap"`
	// Keyed by team ID.
	TeamMmrs         map[string]float64         `json:"TeamMmrs"`
	StatPerformances map[string]StatPerformance `json:"StatPerformances"`
}

type RankRecap struct {
	PreMatchCsr  CsrContainer `json:"PreMatchCsr"`
	PostMatchCsr CsrContainer `json:"PostMatchCsr"`
}

type CsrContainer struct {
	Value float64 `json:"Value"`
}

type StatPerformance struct {
	Count    int     `json:"Count"`
	Expected float64 `json:"Expected"`
}

type AssetResponse struct {
	AssetID     string `json:"AssetId"`
	VersionID   string `json:"VersionId"`
	PublicName  string `json:"PublicName"`
	Description string `json:"Description"`
}
