package model

// Status 交易对分类结果
type Status string

const (
	StatusPump   Status = "PUMP"
	StatusRug    Status = "RUG"
	StatusNormal Status = "NORMAL"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPump, StatusRug, StatusNormal:
		return true
	}
	return false
}
