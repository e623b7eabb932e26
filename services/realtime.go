package services

import (
	"context"
	"fmt"
	"log"

	pubnub "github.com/pubnub/go/v7"

	"community-system/models"
	"community-system/utils"
)

// RealtimeService pushes occupancy and attendance updates to PubNub
// channels. Publishing is best-effort: failures are logged, never
// surfaced to the scan path, and a tripped breaker skips the call.
type RealtimeService struct {
	pubnub  *pubnub.PubNub
	breaker *utils.CircuitBreaker
}

func NewRealtimeService(pn *pubnub.PubNub) *RealtimeService {
	return &RealtimeService{
		pubnub:  pn,
		breaker: utils.NewCircuitBreaker("pubnub", utils.BreakerSettings{}),
	}
}

func (s *RealtimeService) PublishOccupancy(facilityID string, status *models.OccupancyStatus) {
	if s == nil || s.pubnub == nil || status == nil {
		return
	}

	channel := fmt.Sprintf("facility-%s", facilityID)
	s.publish(channel, map[string]any{
		"type":        "occupancy_update",
		"facility_id": facilityID,
		"current":     status.Current,
		"max":         status.Max,
		"available":   status.Available,
		"percentage":  status.Percentage,
	})
}

func (s *RealtimeService) PublishAttendance(username string, result *models.ToggleResult) {
	if s == nil || s.pubnub == nil || result == nil {
		return
	}

	channel := fmt.Sprintf("user-%s", username)
	s.publish(channel, map[string]any{
		"type":          "attendance_update",
		"action":        string(result.Action),
		"total_minutes": result.TotalMinutes,
		"is_eligible":   result.IsEligible,
	})
}

func (s *RealtimeService) publish(channel string, message map[string]any) {
	_, err := s.breaker.Execute(context.Background(), func() (interface{}, error) {
		_, _, err := s.pubnub.Publish().
			Channel(channel).
			Message(message).
			Execute()
		return nil, err
	})
	if err != nil {
		log.Printf("realtime publish to %s failed: %v", channel, err)
	}
}
