package service

import (
	"regexp"
	"strings"

	"github.com/railmadad/backend/internal/models"
)

var (
	trainRe = regexp.MustCompile(`(?i)train\s*(?:no\.?|number)?\s*[:#]?\s*(\d{4,5})\b`)
	pnrRe   = regexp.MustCompile(`(?i)pnr\s*(?:no\.?|number)?\s*[:#]?\s*(\d{10})\b`)
	coachRe = regexp.MustCompile(`(?i)coach\s*(?:no\.?|number)?\s*[:#]?\s*([A-Z]{1,2}\d{1,2})\b`)
	seatRe  = regexp.MustCompile(`(?i)(?:seat|berth)\s*(?:no\.?|number)?\s*[:#]?\s*(\d{1,3})\b`)
)

// Extracted holds journey details found in free text.
type Extracted struct {
	PNR   string
	Train models.TrainInfo
}

func ExtractJourney(text string) Extracted {
	var out Extracted
	if m := trainRe.FindStringSubmatch(text); m != nil {
		out.Train.TrainNumber = m[1]
	}
	if m := pnrRe.FindStringSubmatch(text); m != nil {
		out.PNR = m[1]
	}
	if m := coachRe.FindStringSubmatch(text); m != nil {
		out.Train.CoachNumber = strings.ToUpper(m[1])
	}
	if m := seatRe.FindStringSubmatch(text); m != nil {
		out.Train.SeatNumber = m[1]
	}
	return out
}

// mergeTrainInfo fills empty fields of given from found.
func mergeTrainInfo(given, found models.TrainInfo) models.TrainInfo {
	if given.TrainNumber == "" {
		given.TrainNumber = found.TrainNumber
	}
	if given.CoachNumber == "" {
		given.CoachNumber = found.CoachNumber
	}
	if given.SeatNumber == "" {
		given.SeatNumber = found.SeatNumber
	}
	return given
}
