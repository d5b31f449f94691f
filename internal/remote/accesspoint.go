package remote

import "log/slog"

// AccessPoint brings the network up before the listeners open and takes it
// down after they close. Radio and network-stack details live behind it.
type AccessPoint interface {
	Start(identity, credential string) error
	Stop()
}

// LoggingAccessPoint is used when the host network is already up.
type LoggingAccessPoint struct {
	Logger *slog.Logger
}

func (a *LoggingAccessPoint) Start(identity, credential string) error {
	a.logger().Info("access_point_started",
		"identity", identity,
		"credential_set", credential != "",
	)
	return nil
}

func (a *LoggingAccessPoint) Stop() {
	a.logger().Info("access_point_stopped")
}

func (a *LoggingAccessPoint) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}
