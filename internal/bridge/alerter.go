package bridge

import "log/slog"

// logAlerter reports user-facing alerts in the service log
type logAlerter struct {
	logger *slog.Logger
}

func (a logAlerter) Alert(title, header, content string) {
	a.logger.Error(title, "header", header, "content", content)
}
