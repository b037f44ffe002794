package video

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"vision-studio-server/modules/common/config"
	redisutil "vision-studio-server/modules/common/redis"
	"vision-studio-server/modules/common/usage"
)

const (
	queueKey     = "jobs:queue"
	jobKeyPrefix = "video:job:"
	jobTTL       = 24 * time.Hour
)

// Notifier - Job 진행 상황 브로드캐스트 (WebSocket 허브가 주입)
type Notifier func(jobID, status string)

type Service struct {
	rdb      *redis.Client
	meter    *usage.Meter
	notifier Notifier
}

func NewService(rdb *redis.Client, meter *usage.Meter) *Service {
	log.Println("✅ Video service initialized")
	return &Service{
		rdb:   rdb,
		meter: meter,
	}
}

// SetNotifier - 진행 상황 알림 콜백 등록
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) notify(jobID, status string) {
	if s.notifier != nil {
		s.notifier(jobID, status)
	}
}

// resolveModel - 단계에 맞는 Veo 모델 선택
func resolveModel(stage string) string {
	cfg := config.GetConfig()
	if stage == StageFull {
		return cfg.VideoFullModel
	}
	return cfg.VideoFastModel
}

// SubmitJob - Job 생성 및 Redis Queue에 추가
func (s *Service) SubmitJob(ctx context.Context, req VideoRequest) (string, error) {
	jobID := uuid.New().String()
	now := time.Now().Format(time.RFC3339)

	job := &VideoJob{
		JobID:       jobID,
		Status:      StatusPending,
		Stage:       req.Stage,
		Model:       resolveModel(req.Stage),
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Resolution:  req.Resolution,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.saveJob(ctx, job); err != nil {
		return "", fmt.Errorf("failed to store job: %w", err)
	}

	// Queue에는 Job ID만 넣는다 (worker가 Redis에서 전체 데이터를 조회)
	if err := s.rdb.LPush(ctx, queueKey, jobID).Err(); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	log.Printf("✅ Video job enqueued: %s (stage=%s, model=%s)", jobID, job.Stage, job.Model)
	return jobID, nil
}

// FetchJob - Job 조회
func (s *Service) FetchJob(ctx context.Context, jobID string) (*VideoJob, error) {
	raw, err := s.rdb.Get(ctx, jobKeyPrefix+jobID).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job: %w", err)
	}

	var job VideoJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("failed to parse job: %w", err)
	}
	return &job, nil
}

// saveJob - Job 레코드 저장
func (s *Service) saveJob(ctx context.Context, job *VideoJob) error {
	job.UpdatedAt = time.Now().Format(time.RFC3339)

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, jobKeyPrefix+job.JobID, string(data), jobTTL).Err()
}

// updateStatus - Job 상태 변경 + 브로드캐스트
func (s *Service) updateStatus(ctx context.Context, job *VideoJob, status string) {
	job.Status = status
	if err := s.saveJob(ctx, job); err != nil {
		log.Printf("⚠️  [Video] Failed to save job %s: %v", job.JobID, err)
	}
	s.notify(job.JobID, status)
}

// CancelJob - 취소 플래그 설정
// 이미 완료/취소된 Job은 취소할 수 없다
func (s *Service) CancelJob(ctx context.Context, jobID string) error {
	job, err := s.FetchJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.Status == StatusCompleted || job.Status == StatusCancelled {
		return fmt.Errorf("job already %s: %s", job.Status, jobID)
	}

	if err := redisutil.SetJobCancelled(s.rdb, jobID); err != nil {
		return fmt.Errorf("failed to set cancel flag: %w", err)
	}

	// pending 상태면 worker가 집기 전에 바로 취소 확정
	if job.Status == StatusPending {
		s.updateStatus(ctx, job, StatusCancelled)
	}

	log.Printf("🛑 [Video] Cancel requested for job: %s", jobID)
	return nil
}
