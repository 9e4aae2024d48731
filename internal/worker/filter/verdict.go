package filter

// Reason 拒绝原因，同时作为指标标签
type Reason string

const (
	ReasonNotGood               Reason = "not_good"
	ReasonBundle                Reason = "bundle"
	ReasonRugOracleUnavailable  Reason = "rug_oracle_unavailable"
	ReasonFakeVolume            Reason = "fake_volume"
	ReasonFakeVolumeUnavailable Reason = "fake_volume_oracle_unavailable"
	ReasonBlacklisted           Reason = "blacklisted"
	ReasonBelowThreshold        Reason = "below_threshold"
)

type Verdict struct {
	Pass    bool
	Reason  Reason
	Message string // 已发送的通知内容，阈值拒绝时为空
}

func pass() Verdict {
	return Verdict{Pass: true}
}

func reject(reason Reason, message string) Verdict {
	return Verdict{Reason: reason, Message: message}
}
