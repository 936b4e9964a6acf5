package domain

import (
	"time"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_MODBUS       = "modbus"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_CONTROLLER   = "controller"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type ReadPointsRequest struct {
	ActorRequestMixIn
	Names []string
}

type ReadPointsResponse struct {
	ActorResponseMixIn
	Values PointValues
}

type WritePointRequest struct {
	ActorRequestMixIn
	Name  string
	Value float64
}

type WritePointResponse struct {
	ActorResponseMixIn
	Name  string
	Value float64
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

// ShutdownRequest asks the process to stop gracefully.
type ShutdownRequest struct {
	Reason string
	At     time.Time
}
