package models

import (
	"errors"
	"fmt"
)

// Минимальная классификация ошибок ядра.
var (
	// ErrInvalidInput некорректные координаты, режим потока или индекс маршрута.
	ErrInvalidInput = errors.New("invalid input")
	// ErrModelNotReady предсказание запрошено до обучения модели.
	ErrModelNotReady = errors.New("model not ready")
	// ErrCollaboratorFailure ошибка или таймаут внешнего текстового сервиса.
	ErrCollaboratorFailure = errors.New("collaborator failure")
	// ErrGeofenceLoad источник полигонов недоступен или поврежден.
	ErrGeofenceLoad = errors.New("geofence load failure")
	// ErrNoRoutes провайдер маршрутов ничего не вернул.
	ErrNoRoutes = fmt.Errorf("%w: no routes found", ErrInvalidInput)
	// ErrRouteProvider провайдер маршрутов недоступен или не настроен.
	ErrRouteProvider = fmt.Errorf("%w: route provider failure", ErrInvalidInput)
)
