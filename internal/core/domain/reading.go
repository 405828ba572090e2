package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidReading = errors.New("invalid reading")
	ErrInvalidRange   = errors.New("invalid time range")
	ErrStorage        = errors.New("storage failure")
)

// EventSensorDataUpdate is the realtime event name emitted for every stored reading.
const EventSensorDataUpdate = "sensorDataUpdate"

// Reading is a single temperature/humidity measurement. ID and Timestamp are
// assigned by the store; a reading is immutable once stored.
type Reading struct {
	ID          int64     `json:"id" bson:"_id"`
	SensorID    int64     `json:"sensor_id" bson:"sensor_id"`
	Temperature float64   `json:"temperatura" bson:"temperatura"`
	Humidity    float64   `json:"umidade" bson:"umidade"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
}
