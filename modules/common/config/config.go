package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Server
	Port string

	// Storage (히스토리 슬롯 저장소)
	StorageBackend string // "memory" | "redis" | "supabase"
	SlotQuotaBytes int    // 슬롯당 최대 바이트 (localStorage quota 역할)

	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseSlotTable  string

	// Gemini API
	GeminiAPIKeys  []string // 429 대비 복수 키 지원
	ImagenModel    string
	ImageEditModel string
	DescribeModel  string
	VideoFastModel string
	VideoFullModel string

	// History
	GenerationHistoryCap int // generator/editor 슬롯
	ModuleHistoryCap     int // 템플릿 모듈 슬롯
	ThumbnailMaxDim      int // 히스토리 저장 전 다운사이즈 크기

	// Usage (일일 생성 제한)
	DailyGenerationLimit int
	VideoUsageCost       int

	// Admin
	StudioAccessCode string
}

var globalConfig *Config

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	// Redis UseTLS 파싱
	useTLS := false // 로컬 기본값
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	// Gemini API 키 파싱 (콤마 구분으로 여러 개 지원)
	var apiKeys []string
	for _, key := range strings.Split(os.Getenv("GEMINI_API_KEY"), ",") {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			apiKeys = append(apiKeys, trimmed)
		}
	}

	globalConfig = &Config{
		// Server
		Port: getEnv("PORT", "8080"),

		// Storage
		StorageBackend: getEnv("STORAGE_BACKEND", "memory"),
		SlotQuotaBytes: getEnvInt("SLOT_QUOTA_BYTES", 5*1024*1024),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,

		// Supabase
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseSlotTable:  getEnv("SUPABASE_SLOT_TABLE", "studio_history_slots"),

		// Gemini API
		GeminiAPIKeys:  apiKeys,
		ImagenModel:    getEnv("IMAGEN_MODEL", "imagen-4.0-generate-001"),
		ImageEditModel: getEnv("IMAGE_EDIT_MODEL", "gemini-2.5-flash-image-preview"),
		DescribeModel:  getEnv("DESCRIBE_MODEL", "gemini-2.5-flash"),
		VideoFastModel: getEnv("VIDEO_FAST_MODEL", "veo-3.1-fast-generate-preview"),
		VideoFullModel: getEnv("VIDEO_FULL_MODEL", "veo-3.1-generate-preview"),

		// History
		GenerationHistoryCap: getEnvInt("GENERATION_HISTORY_CAP", 20),
		ModuleHistoryCap:     getEnvInt("MODULE_HISTORY_CAP", 50),
		ThumbnailMaxDim:      getEnvInt("THUMBNAIL_MAX_DIM", 256),

		// Usage
		DailyGenerationLimit: getEnvInt("DAILY_GENERATION_LIMIT", 25),
		VideoUsageCost:       getEnvInt("VIDEO_USAGE_COST", 5),

		// Admin
		StudioAccessCode: getEnv("STUDIO_ACCESS_CODE", ""),
	}

	// 필수 환경변수 검증
	if err := globalConfig.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Storage: %s (quota: %d bytes/slot)", globalConfig.StorageBackend, globalConfig.SlotQuotaBytes)
	log.Printf("   Gemini: %d API key(s), edit model %s", len(globalConfig.GeminiAPIKeys), globalConfig.ImageEditModel)
	log.Printf("   History caps: generation=%d, modules=%d", globalConfig.GenerationHistoryCap, globalConfig.ModuleHistoryCap)
	log.Printf("   Daily limit: %d generations", globalConfig.DailyGenerationLimit)

	return globalConfig, nil
}

// GetConfig - 로드된 설정 가져오기
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	if len(c.GeminiAPIKeys) == 0 {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	switch c.StorageBackend {
	case "memory":
	case "redis":
		if c.RedisHost == "" {
			return fmt.Errorf("REDIS_HOST is required for redis storage")
		}
	case "supabase":
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required for supabase storage")
		}
		if c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_KEY is required for supabase storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND: %s", c.StorageBackend)
	}
	if c.SlotQuotaBytes <= 0 {
		return fmt.Errorf("SLOT_QUOTA_BYTES must be positive")
	}
	return nil
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt - 정수 환경변수 가져오기 (기본값 지원)
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
