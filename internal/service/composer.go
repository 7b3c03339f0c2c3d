package service

import (
	"fmt"
	"strconv"

	"github.com/amaumene/streamscout/internal/domain"
)

const (
	clickAction    = "FLUTTER_NOTIFICATION_CLICK"
	mediaTypeTV    = "tv"
	mediaTypeMovie = "movie"

	episodeAlertTitle  = "New Episode Airing Today!"
	staleReminderTitle = "Movie Night? 🍿"
	releaseAlertTitle  = "New Release!"
)

func ComposeEpisodeAlert(subjectID int64, fact *domain.SubjectFact) *domain.Message {
	body := fmt.Sprintf("S%dE%d of %s: \"%s\" airs today.", fact.SeasonNumber, fact.EpisodeNumber, fact.ShowName, fact.EpisodeName)
	return &domain.Message{
		Title: episodeAlertTitle,
		Body:  body,
		Data:  routingData(strconv.FormatInt(subjectID, 10), mediaTypeTV),
	}
}

func ComposeStaleReminder(item domain.WatchlistItem) *domain.Message {
	mediaID := item.MediaID
	if mediaID == "" {
		mediaID = item.ID
	}
	body := fmt.Sprintf("You added %s to your watchlist a while ago. It's the perfect time to watch it!", item.Title)
	return &domain.Message{
		Title: staleReminderTitle,
		Body:  body,
		Data:  routingData(mediaID, item.MediaType),
	}
}

func ComposeReleaseAlert(event domain.ReleaseEvent) *domain.Message {
	return &domain.Message{
		Title: releaseAlertTitle,
		Body:  fmt.Sprintf("%s is now available!", event.Title),
		Data:  routingData(event.MediaID, event.MediaType),
	}
}

func routingData(mediaID, mediaType string) map[string]string {
	if mediaType == "" {
		mediaType = mediaTypeMovie
	}
	return map[string]string{
		"mediaId":      mediaID,
		"mediaType":    mediaType,
		"click_action": clickAction,
	}
}
