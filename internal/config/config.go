// Package config defines the configuration contract and handles loading and validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
)

const (
	// Canonical environment variable keys.
	KeyTelegramToken     = "TELEGRAM_TOKEN"
	KeyBotOwner          = "BOT_OWNER"
	KeyAuthorizedChatIDs = "AUTHORIZED_CHAT_IDS"
	KeyRosterFile        = "ROSTER_FILE"
	KeyMongoURI          = "MONGO_URI"
	KeyMongoDB           = "MONGO_DB"
	KeyAppEnv            = "APP_ENV"
	KeyLogLevel          = "LOG_LEVEL"
	KeyHTTPPort          = "HTTP_PORT"
	KeyProbeURL          = "PROBE_URL"
	KeyProbeArtifact     = "PROBE_ARTIFACT"
	KeyPhotoPath         = "PHOTO_PATH"
	KeyErrorCooldown     = "ERROR_COOLDOWN"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Defaults for optional settings.
	DefaultAppEnv        = EnvProduction
	DefaultLogLevel      = "info"
	DefaultHTTPPort      = 8080
	DefaultProbeURL      = "https://lelangagunan.bni.co.id"
	DefaultProbeArtifact = "./Files/Testing/LelangAgunan/Home.png"
	DefaultPhotoPath     = "Files/tux.png"
	DefaultErrorCooldown = 2 * time.Second

	// Recommended database names by environment.
	DefaultMongoDBProd = "tg_monitor_bot"
	DefaultMongoDBDev  = "tg_monitor_bot_dev"

	// Keychain coordinates consulted when TELEGRAM_TOKEN is unset.
	KeychainService      = "tg_monitor_bot"
	KeychainTokenAccount = "telegram_token"
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the bot must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the bot.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Required:    true,
		Description: "Telegram Bot Token issued by BotFather.",
		Notes:       "Falls back to the OS keychain (service " + KeychainService + ", account " + KeychainTokenAccount + ").",
	},
	{
		Key:         KeyBotOwner,
		Example:     "657952763",
		Required:    true,
		Description: "Telegram chat id of the bot owner; always authorized.",
	},
	{
		Key:         KeyAuthorizedChatIDs,
		Example:     "657952763,5162612990",
		Description: "Comma-separated chat ids allowed to use the bot.",
	},
	{
		Key:         KeyRosterFile,
		Example:     "roster.yaml",
		Description: "Optional YAML file listing additional authorized chat ids.",
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Description: "MongoDB connection string.",
		Notes:       "Sender tracking and owner bootstrap are disabled when empty.",
	},
	{
		Key:         KeyMongoDB,
		Example:     DefaultMongoDBProd + " / " + DefaultMongoDBDev,
		Description: "MongoDB database name.",
		Notes:       "Required when " + KeyMongoURI + " is set. Recommended: production=" + DefaultMongoDBProd + ", development=" + DefaultMongoDBDev + ".",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "HTTP health/diagnostics port.",
	},
	{
		Key:         KeyProbeURL,
		Example:     DefaultProbeURL,
		Default:     DefaultProbeURL,
		Description: "Website captured by the home page probe.",
	},
	{
		Key:         KeyProbeArtifact,
		Example:     DefaultProbeArtifact,
		Default:     DefaultProbeArtifact,
		Description: "Path the probe screenshot is written to; overwritten on every run.",
	},
	{
		Key:         KeyPhotoPath,
		Example:     DefaultPhotoPath,
		Default:     DefaultPhotoPath,
		Description: "Local image sent by the /photo command.",
	},
	{
		Key:         KeyErrorCooldown,
		Example:     DefaultErrorCooldown.String(),
		Default:     DefaultErrorCooldown.String(),
		Description: "Pause inserted after a network error before polling again.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	TelegramToken     string
	BotOwnerID        int64
	AuthorizedChatIDs []int64
	RosterFile        string
	MongoURI          string
	MongoDB           string
	AppEnv            string
	LogLevel          string
	HTTPPort          int
	ProbeURL          string
	ProbeArtifact     string
	PhotoPath         string
	ErrorCooldown     time.Duration
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:        firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		TelegramToken: strings.TrimSpace(os.Getenv(KeyTelegramToken)),
		RosterFile:    strings.TrimSpace(os.Getenv(KeyRosterFile)),
		MongoURI:      strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:       strings.TrimSpace(os.Getenv(KeyMongoDB)),
		LogLevel:      firstNonEmpty(strings.TrimSpace(os.Getenv(KeyLogLevel)), DefaultLogLevel),
		HTTPPort:      DefaultHTTPPort,
		ProbeURL:      firstNonEmpty(os.Getenv(KeyProbeURL), DefaultProbeURL),
		ProbeArtifact: firstNonEmpty(os.Getenv(KeyProbeArtifact), DefaultProbeArtifact),
		PhotoPath:     firstNonEmpty(os.Getenv(KeyPhotoPath), DefaultPhotoPath),
		ErrorCooldown: DefaultErrorCooldown,
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	if cfg.TelegramToken == "" {
		cfg.TelegramToken = tokenFromKeychain()
	}

	missing := make([]string, 0)

	if cfg.TelegramToken == "" {
		missing = append(missing, KeyTelegramToken)
	}

	ownerRaw := strings.TrimSpace(os.Getenv(KeyBotOwner))
	if ownerRaw == "" {
		missing = append(missing, KeyBotOwner)
	} else {
		ownerID, parseErr := strconv.ParseInt(ownerRaw, 10, 64)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyBotOwner, parseErr)
		}
		cfg.BotOwnerID = ownerID
	}

	if cfg.MongoURI != "" && cfg.MongoDB == "" {
		missing = append(missing, KeyMongoDB)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	ids, err := ParseChatIDs(os.Getenv(KeyAuthorizedChatIDs))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeyAuthorizedChatIDs, err)
	}
	cfg.AuthorizedChatIDs = ids

	httpPortRaw := strings.TrimSpace(os.Getenv(KeyHTTPPort))
	if httpPortRaw != "" {
		port, parseErr := strconv.Atoi(httpPortRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyHTTPPort, parseErr)
		}
		if port <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyHTTPPort)
		}
		cfg.HTTPPort = port
	}

	cooldownRaw := strings.TrimSpace(os.Getenv(KeyErrorCooldown))
	if cooldownRaw != "" {
		cooldown, parseErr := time.ParseDuration(cooldownRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyErrorCooldown, parseErr)
		}
		if cooldown < 0 {
			return Config{}, fmt.Errorf("%s must not be negative", KeyErrorCooldown)
		}
		cfg.ErrorCooldown = cooldown
	}

	return cfg, nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// MongoEnabled reports whether a MongoDB deployment is configured.
func (c Config) MongoEnabled() bool {
	return c.MongoURI != ""
}

// ParseChatIDs splits a comma-separated list of chat ids. Blank entries are skipped.
func ParseChatIDs(raw string) ([]int64, error) {
	ids := make([]int64, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chat id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FormatRedacted renders the resolved configuration with secrets masked.
func FormatRedacted(cfg Config) string {
	ids := make([]string, 0, len(cfg.AuthorizedChatIDs))
	for _, id := range cfg.AuthorizedChatIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}

	lines := []string{
		fmt.Sprintf("%s=%s", KeyTelegramToken, redact(cfg.TelegramToken)),
		fmt.Sprintf("%s=%d", KeyBotOwner, cfg.BotOwnerID),
		fmt.Sprintf("%s=%s", KeyAuthorizedChatIDs, strings.Join(ids, ",")),
		fmt.Sprintf("%s=%s", KeyRosterFile, cfg.RosterFile),
		fmt.Sprintf("%s=%s", KeyMongoURI, redact(cfg.MongoURI)),
		fmt.Sprintf("%s=%s", KeyMongoDB, cfg.MongoDB),
		fmt.Sprintf("%s=%s", KeyAppEnv, cfg.AppEnv),
		fmt.Sprintf("%s=%s", KeyLogLevel, cfg.LogLevel),
		fmt.Sprintf("%s=%d", KeyHTTPPort, cfg.HTTPPort),
		fmt.Sprintf("%s=%s", KeyProbeURL, cfg.ProbeURL),
		fmt.Sprintf("%s=%s", KeyProbeArtifact, cfg.ProbeArtifact),
		fmt.Sprintf("%s=%s", KeyPhotoPath, cfg.PhotoPath),
		fmt.Sprintf("%s=%s", KeyErrorCooldown, cfg.ErrorCooldown),
	}

	return strings.Join(lines, "\n")
}

func redact(value string) string {
	if value == "" {
		return ""
	}
	return "***"
}

func tokenFromKeychain() string {
	token, err := keyring.Get(KeychainService, KeychainTokenAccount)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(token)
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
