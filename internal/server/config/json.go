package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophwallet/internal/flagx"
	"github.com/dmitrijs2005/gophwallet/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Duration fields accept
// both "2h" strings and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC     string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP     string         `json:"endpoint_addr_http"`
	MetricsPath          string         `json:"metrics_path"`
	DatabaseDSN          string         `json:"database_dsn"`
	SessionKey           string         `json:"session_key"`
	RecoveryKey          string         `json:"recovery_key"`
	AccountReceiptWindow timex.Duration `json:"account_receipt_window"`
	UnlockReceiptWindow  timex.Duration `json:"unlock_receipt_window"`
	ForwardReceiptWindow timex.Duration `json:"forward_receipt_window"`
	EthRPCURL            string         `json:"eth_rpc_url"`
	FactoryAddress       string         `json:"factory_address"`
	RelaySenderAddress   string         `json:"relay_sender_address"`
	MaxForwardGas        uint64         `json:"max_forward_gas"`
	GasMultiplier        float64        `json:"gas_multiplier"`
	RecaptchaSecret      string         `json:"recaptcha_secret"`
	RecaptchaURL         string         `json:"recaptcha_url"`
	AWSRegion            string         `json:"aws_region"`
	AWSAccessKeyID       string         `json:"aws_access_key_id"`
	AWSSecretAccessKey   string         `json:"aws_secret_access_key"`
	AWSBaseEndpoint      string         `json:"aws_base_endpoint"`
	EmailSender          string         `json:"email_sender"`
	SQSQueueURL          string         `json:"sqs_queue_url"`
	EventsBackend        string         `json:"events_backend"`
	SNSTopicARN          string         `json:"sns_topic_arn"`
	KafkaBrokers         []string       `json:"kafka_brokers"`
	KafkaTopic           string         `json:"kafka_topic"`
	ArchiveBucket        string         `json:"archive_bucket"`
	ProxySeed            []string       `json:"proxy_seed"`
	RedisAddr            string         `json:"redis_addr"`
	ThrottleLimit        int            `json:"throttle_limit"`
	ThrottleWindow       timex.Duration `json:"throttle_window"`
	LogLevel             string         `json:"log_level"`
	LogBackend           string         `json:"log_backend"`
}

// parseJson overlays values from the file named by -c/-config. Keys absent
// from the file keep their current value. Unreadable files or invalid JSON
// panic.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.JsonConfigFlags(args)
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.MetricsPath, c.MetricsPath)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SessionKey, c.SessionKey)
	setString(&config.RecoveryKey, c.RecoveryKey)
	if c.AccountReceiptWindow.Duration > 0 {
		config.AccountReceiptWindow = c.AccountReceiptWindow.Duration
	}
	if c.UnlockReceiptWindow.Duration > 0 {
		config.UnlockReceiptWindow = c.UnlockReceiptWindow.Duration
	}
	if c.ForwardReceiptWindow.Duration > 0 {
		config.ForwardReceiptWindow = c.ForwardReceiptWindow.Duration
	}
	setString(&config.EthRPCURL, c.EthRPCURL)
	setString(&config.FactoryAddress, c.FactoryAddress)
	setString(&config.RelaySenderAddress, c.RelaySenderAddress)
	if c.MaxForwardGas > 0 {
		config.MaxForwardGas = c.MaxForwardGas
	}
	if c.GasMultiplier > 0 {
		config.GasMultiplier = c.GasMultiplier
	}
	setString(&config.RecaptchaSecret, c.RecaptchaSecret)
	setString(&config.RecaptchaURL, c.RecaptchaURL)
	setString(&config.AWSRegion, c.AWSRegion)
	setString(&config.AWSAccessKeyID, c.AWSAccessKeyID)
	setString(&config.AWSSecretAccessKey, c.AWSSecretAccessKey)
	setString(&config.AWSBaseEndpoint, c.AWSBaseEndpoint)
	setString(&config.EmailSender, c.EmailSender)
	setString(&config.SQSQueueURL, c.SQSQueueURL)
	setString(&config.EventsBackend, c.EventsBackend)
	setString(&config.SNSTopicARN, c.SNSTopicARN)
	if len(c.KafkaBrokers) > 0 {
		config.KafkaBrokers = c.KafkaBrokers
	}
	setString(&config.KafkaTopic, c.KafkaTopic)
	if len(c.ProxySeed) > 0 {
		config.ProxySeed = c.ProxySeed
	}
	setString(&config.ArchiveBucket, c.ArchiveBucket)
	setString(&config.RedisAddr, c.RedisAddr)
	if c.ThrottleLimit > 0 {
		config.ThrottleLimit = c.ThrottleLimit
	}
	if c.ThrottleWindow.Duration > 0 {
		config.ThrottleWindow = c.ThrottleWindow.Duration
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogBackend, c.LogBackend)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
