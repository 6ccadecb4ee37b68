// In file: internal/llm/profiler.go
package llm

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ModelProfile tracks latency, token volume, cost and reliability for one model.
type ModelProfile struct {
	ModelID           string    `json:"modelId"`
	AvgLatencyMS      int64     `json:"avgLatencyMs"`
	Status            string    `json:"status"`
	ErrorRate         float64   `json:"errorRate"`
	TotalSuccesses    int64     `json:"totalSuccesses"`
	TotalFailures     int64     `json:"totalFailures"`
	TotalInputTokens  int64     `json:"totalInputTokens"`
	TotalOutputTokens int64     `json:"totalOutputTokens"`
	LastSeen          time.Time `json:"lastSeen"`
	CostSpentMonthly  float64   `json:"costSpentMonthly"`
}

// TokenCosts is the USD price of a single input and output token.
type TokenCosts struct {
	Input  float64
	Output float64
}

// ProfileUpdater receives the outcome of every model call.
type ProfileUpdater interface {
	UpdateProfileOnSuccess(ctx context.Context, modelID string, latency time.Duration, usage Usage)
	UpdateProfileOnFailure(ctx context.Context, modelID string)
}

// Profiler persists model profiles as Redis hashes keyed "profile:<model>".
type Profiler struct {
	rdb   *redis.Client
	costs map[string]TokenCosts
}

var _ ProfileUpdater = (*Profiler)(nil)

func NewProfiler(rdb *redis.Client, costs map[string]TokenCosts) *Profiler {
	if costs == nil {
		costs = map[string]TokenCosts{}
	}
	return &Profiler{rdb: rdb, costs: costs}
}

func (p *Profiler) getProfileKey(modelID string) string {
	return fmt.Sprintf("profile:%s", modelID)
}

func (p *Profiler) getCostKey(modelID string, now time.Time) string {
	return fmt.Sprintf("cost:%s:%s", modelID, now.Format("2006-01"))
}

// GetProfile retrieves a model's profile. A model that was never called yields a zero profile.
func (p *Profiler) GetProfile(ctx context.Context, modelID string) (*ModelProfile, error) {
	profileData, err := p.rdb.HGetAll(ctx, p.getProfileKey(modelID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read profile for %s: %w", modelID, err)
	}

	profile := &ModelProfile{ModelID: modelID, Status: "unknown"}
	if len(profileData) == 0 {
		return profile, nil
	}
	profile.AvgLatencyMS, _ = strconv.ParseInt(profileData["avg_latency_ms"], 10, 64)
	profile.Status = profileData["status"]
	profile.ErrorRate, _ = strconv.ParseFloat(profileData["error_rate"], 64)
	profile.TotalSuccesses, _ = strconv.ParseInt(profileData["total_successes"], 10, 64)
	profile.TotalFailures, _ = strconv.ParseInt(profileData["total_failures"], 10, 64)
	profile.TotalInputTokens, _ = strconv.ParseInt(profileData["total_input_tokens"], 10, 64)
	profile.TotalOutputTokens, _ = strconv.ParseInt(profileData["total_output_tokens"], 10, 64)
	profile.LastSeen, _ = time.Parse(time.RFC3339Nano, profileData["last_seen"])
	profile.CostSpentMonthly, _ = p.rdb.Get(ctx, p.getCostKey(modelID, time.Now())).Float64()
	return profile, nil
}

func (p *Profiler) UpdateProfileOnSuccess(ctx context.Context, modelID string, latency time.Duration, usage Usage) {
	key := p.getProfileKey(modelID)
	const alpha = 0.1

	// Latency is an exponential moving average; the first sample seeds it.
	err := p.rdb.Watch(ctx, func(tx *redis.Tx) error {
		currentLatencyStr, err := tx.HGet(ctx, key, "avg_latency_ms").Result()
		if err != nil && err != redis.Nil {
			return err
		}
		newLatency := latency.Milliseconds()
		if currentLatency, perr := strconv.ParseInt(currentLatencyStr, 10, 64); perr == nil && currentLatency > 0 {
			newLatency = int64((alpha * float64(latency.Milliseconds())) + ((1.0 - alpha) * float64(currentLatency)))
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "avg_latency_ms", newLatency)
			return nil
		})
		return err
	}, key)
	if err != nil {
		log.Printf("Error updating latency for %s: %v", modelID, err)
	}

	now := time.Now()
	pipe := p.rdb.Pipeline()
	successes := pipe.HIncrBy(ctx, key, "total_successes", 1)
	failures := pipe.HGet(ctx, key, "total_failures")
	pipe.HIncrBy(ctx, key, "total_input_tokens", usage.InputTokens)
	pipe.HIncrBy(ctx, key, "total_output_tokens", usage.OutputTokens)
	pipe.HSet(ctx, key, "status", "online", "last_seen", now.Format(time.RFC3339Nano))

	if costs, ok := p.costs[modelID]; ok {
		callCost := float64(usage.InputTokens)*costs.Input + float64(usage.OutputTokens)*costs.Output
		costKey := p.getCostKey(modelID, now)
		pipe.IncrByFloat(ctx, costKey, callCost)
		pipe.Expire(ctx, costKey, 35*24*time.Hour)
	}

	// HGet on a missing field reports redis.Nil through Exec; that is an empty count, not a failure.
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		log.Printf("Error in success update pipeline for %s: %v", modelID, err)
		return
	}

	totalFailures, _ := strconv.ParseInt(failures.Val(), 10, 64)
	p.updateErrorRate(ctx, key, successes.Val(), totalFailures)
}

func (p *Profiler) UpdateProfileOnFailure(ctx context.Context, modelID string) {
	key := p.getProfileKey(modelID)
	pipe := p.rdb.Pipeline()
	failures := pipe.HIncrBy(ctx, key, "total_failures", 1)
	successes := pipe.HGet(ctx, key, "total_successes")
	pipe.HSet(ctx, key, "status", "degraded", "last_seen", time.Now().Format(time.RFC3339Nano))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		log.Printf("Error in failure update pipeline for %s: %v", modelID, err)
		return
	}

	totalSuccesses, _ := strconv.ParseInt(successes.Val(), 10, 64)
	p.updateErrorRate(ctx, key, totalSuccesses, failures.Val())
}

func (p *Profiler) updateErrorRate(ctx context.Context, key string, successes, failures int64) {
	total := successes + failures
	if total == 0 {
		return
	}
	if err := p.rdb.HSet(ctx, key, "error_rate", float64(failures)/float64(total)).Err(); err != nil {
		log.Printf("Error updating error rate for %s: %v", key, err)
	}
}

// ProfiledProvider decorates a Provider and reports every call to a ProfileUpdater.
type ProfiledProvider struct {
	next    Provider
	updater ProfileUpdater
	modelID string
}

var _ Provider = (*ProfiledProvider)(nil)

func NewProfiledProvider(next Provider, updater ProfileUpdater, modelID string) *ProfiledProvider {
	return &ProfiledProvider{next: next, updater: updater, modelID: modelID}
}

func (p *ProfiledProvider) Name() string { return p.next.Name() }

func (p *ProfiledProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = p.modelID
	}
	start := time.Now()
	resp, err := p.next.Complete(ctx, req)
	// Profile writes must not be cut short by a cancelled request.
	bg := context.WithoutCancel(ctx)
	if err != nil {
		p.updater.UpdateProfileOnFailure(bg, modelID)
		return nil, err
	}
	p.updater.UpdateProfileOnSuccess(bg, modelID, time.Since(start), resp.Usage)
	return resp, nil
}
