package video

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"google.golang.org/genai"

	"vision-studio-server/modules/common/gemini"
	redisutil "vision-studio-server/modules/common/redis"
	"vision-studio-server/modules/common/usage"
)

// pollInterval - 장기 실행 operation 상태 확인 간격
const pollInterval = 10 * time.Second

// StartWorker - Redis Queue Worker 시작 (main에서 goroutine으로 호출)
func (s *Service) StartWorker(ctx context.Context) {
	log.Println("🔄 Video queue worker starting...")
	log.Printf("👀 Watching queue: %s", queueKey)

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Video worker stopped")
			return
		default:
		}

		// Job 받기 (BRPOP - Blocking Right Pop)
		result, err := s.rdb.BRPop(ctx, 5*time.Second, queueKey).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// 타임아웃은 정상 (큐가 비어있음)
			continue
		}

		// result[0]은 큐 이름, result[1]이 실제 job_id
		jobID := result[1]
		log.Printf("🎯 Received video job: %s", jobID)

		go func() {
			if err := s.ProcessVideoJob(ctx, jobID); err != nil {
				log.Printf("❌ Video job %s failed: %v", jobID, err)
			}
		}()
	}
}

// ProcessVideoJob - 영상 생성 Job 처리 메인 로직
func (s *Service) ProcessVideoJob(ctx context.Context, jobID string) error {
	log.Printf("🎬 ========== Starting Video Job: %s ==========", jobID)

	job, err := s.FetchJob(ctx, jobID)
	if err != nil {
		return err
	}

	// 집기 전에 취소된 경우
	if redisutil.IsJobCancelled(s.rdb, jobID) || job.Status == StatusCancelled {
		log.Printf("🛑 Job %s cancelled before processing", jobID)
		s.updateStatus(ctx, job, StatusCancelled)
		return nil
	}

	// 일일 사용량 차감 (영상 비용)
	if err := s.meter.ConsumeVideo(ctx); err != nil {
		job.Error = "Daily generation limit reached"
		if !errors.Is(err, usage.ErrDailyLimit) {
			job.Error = "Failed to verify daily usage"
		}
		s.updateStatus(ctx, job, StatusFailed)
		return err
	}

	s.updateStatus(ctx, job, StatusProcessing)

	log.Printf("📋 Job Info:")
	log.Printf("  - Model: %s", job.Model)
	log.Printf("  - Prompt: %.80s", job.Prompt)
	log.Printf("  - Ratio: %s, Resolution: %s", job.AspectRatio, job.Resolution)

	uri, err := s.generateVideo(ctx, job)
	if err != nil {
		// 실패 시 차감분 복구
		if refundErr := s.meter.Refund(ctx, s.meter.VideoCost()); refundErr != nil {
			log.Printf("⚠️  Failed to refund usage: %v", refundErr)
		}

		if redisutil.IsJobCancelled(s.rdb, jobID) {
			s.updateStatus(ctx, job, StatusCancelled)
			return nil
		}

		category := gemini.CategorizeError(err)
		job.Error = category.UserMessage()
		s.updateStatus(ctx, job, StatusFailed)
		return err
	}

	job.VideoURI = uri
	s.updateStatus(ctx, job, StatusCompleted)

	log.Printf("🎉 ========== Video Job Completed: %s ==========", jobID)
	return nil
}

// generateVideo - Veo operation 시작 후 고정 간격으로 완료까지 폴링
// 폴링 중 취소 플래그가 보이면 중단한다
func (s *Service) generateVideo(ctx context.Context, job *VideoJob) (string, error) {
	client, err := gemini.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create genai client: %w", err)
	}

	genConfig := &genai.GenerateVideosConfig{
		AspectRatio: job.AspectRatio,
		Resolution:  job.Resolution,
	}

	log.Printf("📤 [Video] Starting generation operation: model=%s", job.Model)
	op, err := client.Models.GenerateVideos(ctx, job.Model, job.Prompt, nil, genConfig)
	if err != nil {
		return "", fmt.Errorf("failed to start video operation: %w", err)
	}

	// 고정 간격 폴링 루프
	for !op.Done {
		if redisutil.IsJobCancelled(s.rdb, job.JobID) {
			return "", fmt.Errorf("job cancelled: %s", job.JobID)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pollInterval):
		}

		op, err = client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return "", fmt.Errorf("failed to poll video operation: %w", err)
		}

		log.Printf("⏳ [Video] Job %s still processing...", job.JobID)
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return "", fmt.Errorf("no video in operation response")
	}

	video := op.Response.GeneratedVideos[0].Video
	if video == nil || video.URI == "" {
		return "", fmt.Errorf("no video URI in operation response")
	}

	log.Printf("✅ [Video] Video generated: %s", video.URI)
	return video.URI, nil
}
