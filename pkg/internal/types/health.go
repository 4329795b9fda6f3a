package types

// HealthResponse 单个依赖的健康状态.
type HealthResponse struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// HealthReport 全部依赖的汇总状态，任一依赖异常时 Status 为 degraded.
type HealthReport struct {
	Status     string           `json:"status"`
	Components []HealthResponse `json:"components"`
}
