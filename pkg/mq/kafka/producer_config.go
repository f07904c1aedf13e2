package kafka

const (
	_  = iota
	KB = 1 << (10 * iota)
	MB = 1 << (10 * iota)
	GB = 1 << (10 * iota)
)

const (
	DefaultVersion         = "2.1.0"
	DefaultMessageMaxBytes = 10 * MB
)

type KafkaProducerConfig struct {
	Version         string `json:"version" yaml:"version"`
	MessageMaxBytes int    `json:"message_max_bytes" yaml:"message_max_bytes"`
	RetryMax        int    `json:"retry_max" yaml:"retry_max"`
	RetryBackoffMs  int    `json:"retry_backoff_ms" yaml:"retry_backoff_ms"`
	RequiredAcks    int    `json:"required_acks" yaml:"required_acks"`
	TimeoutMs       int    `json:"timeout_ms" yaml:"timeout_ms"`
	Compression     string `json:"compression" yaml:"compression"`
	ClientID        string `json:"client_id" yaml:"client_id"`

	SecurityProtocol string `json:"security_protocol" yaml:"security_protocol"`
	SaslUsername     string `json:"sasl_username" yaml:"sasl_username"`
	SaslPassword     string `json:"sasl_password" yaml:"sasl_password"`
	SaslMechanism    string `json:"sasl_mechanism" yaml:"sasl_mechanism"`

	SslCaLocation          string `json:"ssl_ca_location" yaml:"ssl_ca_location"`
	SslCertificateLocation string `json:"ssl_certificate_location" yaml:"ssl_certificate_location"`
	SslKeyLocation         string `json:"ssl_key_location" yaml:"ssl_key_location"`
}
