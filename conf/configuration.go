package conf

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DBConfiguration holds all the database related configuration.
type DBConfiguration struct {
	Driver      string `required:"true"`
	ConnURL     string `envconfig:"DATABASE_URL" required:"true"`
	Namespace   string
	Automigrate bool `default:"true"`
}

// JWTConfiguration holds all the JWT related configuration.
type JWTConfiguration struct {
	Secret         string `required:"true"`
	AdminGroupName string `envconfig:"ADMIN_GROUP_NAME" default:"admin"`
	Expiry         time.Duration `default:"24h"`
}

// APIConfiguration holds the HTTP listener configuration.
type APIConfiguration struct {
	Host string
	Port int `default:"9110"`
}

// MailerConfiguration holds the SMTP configuration.
type MailerConfiguration struct {
	Host       string
	Port       int
	User       string
	Pass       string
	AdminEmail string `envconfig:"ADMIN_EMAIL"`
	Subjects   struct {
		Verification string `default:"이메일 인증 코드"`
		Purchase     string `default:"구매해 주셔서 감사합니다"`
	}
}

// StripeConfiguration holds the Stripe provider configuration.
type StripeConfiguration struct {
	Enabled   bool
	SecretKey string `envconfig:"SECRET_KEY"`
}

// PayPalConfiguration holds the PayPal provider configuration.
type PayPalConfiguration struct {
	Enabled  bool
	ClientID string `envconfig:"CLIENT_ID"`
	Secret   string
	Env      string `default:"sandbox"`
}

// PaymentConfiguration groups the payment provider configurations.
type PaymentConfiguration struct {
	Stripe StripeConfiguration `envconfig:"STRIPE"`
	PayPal PayPalConfiguration `envconfig:"PAYPAL"`
}

// DownloadsConfiguration governs the download gate.
type DownloadsConfiguration struct {
	// Provider selects the asset store backend: "netlify", "local" or
	// "" for the noop store.
	Provider     string
	NetlifyToken string `envconfig:"NETLIFY_TOKEN"`
	LocalRoot    string `envconfig:"LOCAL_ROOT"`

	// MaxDownloads is the per-purchase quota.
	MaxDownloads uint64 `envconfig:"MAX_DOWNLOADS" default:"5"`

	// URLValidity is the lifetime of a signed download URL.
	URLValidity time.Duration `envconfig:"URL_VALIDITY" default:"1h"`
}

// OrdersConfiguration governs order staging.
type OrdersConfiguration struct {
	// PendingTTL is the checkout window of a staged order.
	PendingTTL time.Duration `envconfig:"PENDING_TTL" default:"30m"`
}

// VerificationConfiguration governs signup email codes.
type VerificationConfiguration struct {
	CodeTTL     time.Duration `envconfig:"CODE_TTL" default:"10m"`
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"5"`
}

// SessionConfiguration governs server-side login sessions.
type SessionConfiguration struct {
	TTL        time.Duration `default:"720h"`
	CookieName string        `envconfig:"COOKIE_NAME" default:"studymall_session"`
}

// LoggingConfig holds the logging configuration.
type LoggingConfig struct {
	Level string `default:"info"`
	File  string
}

// Configuration holds all the service configuration.
type Configuration struct {
	SiteURL      string                    `envconfig:"SITE_URL"`
	API          APIConfiguration
	DB           DBConfiguration
	JWT          JWTConfiguration
	Logging      LoggingConfig             `envconfig:"LOG"`
	Mailer       MailerConfiguration       `envconfig:"MAILER"`
	Payment      PaymentConfiguration      `envconfig:"PAYMENT"`
	Downloads    DownloadsConfiguration    `envconfig:"DOWNLOADS"`
	Orders       OrdersConfiguration       `envconfig:"ORDERS"`
	Verification VerificationConfiguration `envconfig:"VERIFICATION"`
	Session      SessionConfiguration      `envconfig:"SESSION"`
}

func loadEnvironment(filename string) error {
	var err error
	if filename != "" {
		err = godotenv.Load(filename)
	} else {
		err = godotenv.Load()
		// .env is optional when the environment is set directly
		if os.IsNotExist(err) {
			return nil
		}
	}
	return err
}

// LoadConfig loads the configuration from the environment, optionally
// seeded from a .env style file.
func LoadConfig(filename string) (*Configuration, error) {
	if err := loadEnvironment(filename); err != nil {
		return nil, errors.Wrap(err, "loading environment")
	}

	config := new(Configuration)
	if err := envconfig.Process("studymall", config); err != nil {
		return nil, errors.Wrap(err, "processing environment")
	}

	if err := configureLogging(&config.Logging); err != nil {
		return nil, errors.Wrap(err, "configuring logging")
	}

	return config, nil
}

func configureLogging(config *LoggingConfig) error {
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	})

	if config.File != "" {
		f, err := os.OpenFile(config.File, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0660)
		if err != nil {
			return err
		}
		logrus.SetOutput(f)
	}

	if config.Level != "" {
		level, err := logrus.ParseLevel(config.Level)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
	}

	return nil
}
