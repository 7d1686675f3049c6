package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/carpool-search/internal/models"
)

// KafkaProducer publishes ride and booking events for downstream consumers
// (the geo-index consumer, analytics).
type KafkaProducer struct {
	rides    *kafka.Writer
	bookings *kafka.Writer
}

func NewKafkaProducer(brokers []string, rideTopic, bookingTopic string) *KafkaProducer {
	return &KafkaProducer{
		rides:    kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: rideTopic, Balancer: &kafka.LeastBytes{}}),
		bookings: kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: bookingTopic, Balancer: &kafka.LeastBytes{}}),
	}
}

func (k *KafkaProducer) PublishRideUpdate(r *models.Ride) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, _ := json.Marshal(r)
	return k.rides.WriteMessages(ctx, kafka.Message{Key: []byte(r.ID), Value: b})
}

func (k *KafkaProducer) PublishBooking(bk *models.Booking) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, _ := json.Marshal(bk)
	return k.bookings.WriteMessages(ctx, kafka.Message{Key: []byte(bk.RideID), Value: b})
}

func (k *KafkaProducer) Close() error {
	var err error
	if k.rides != nil {
		err = k.rides.Close()
	}
	if k.bookings != nil {
		if cerr := k.bookings.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
