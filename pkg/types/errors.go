package types

import "errors"

// 指标计算错误分类，计算器用 %w 包装
var (
	ErrInsufficientData     = errors.New("insufficient data")
	ErrDegenerateInput      = errors.New("degenerate input")
	ErrComputationUndefined = errors.New("computation undefined")
)
