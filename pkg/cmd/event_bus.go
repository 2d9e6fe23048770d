package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/dukex/mailflow/pkg/channels/gochannel"
	"github.com/dukex/mailflow/pkg/channels/kafka"
	"github.com/dukex/mailflow/pkg/eventbus"
)

// NewEventBus returns nil when provider is empty, meaning due emails are delivered in process.
func NewEventBus(provider string, logger *slog.Logger, brokers string, otelEnabled bool) eventbus.EventBus {
	switch provider {
	case "":
		return nil
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create gochannel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), kafka.ParseBrokers(brokers), "mailflow", otelEnabled)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
