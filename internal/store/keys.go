package store

import "fmt"

// PlantsKey scopes the plant collection of one backend user.
func PlantsKey(userID int) string {
	return fmt.Sprintf("plants:%d", userID)
}

// LogsKey scopes the growth log collection of one plant.
func LogsKey(plantID int) string {
	return fmt.Sprintf("logs:%d", plantID)
}
