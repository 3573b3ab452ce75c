package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/permissions"
	"github.com/eproba/eproba-api/internal/repository"
)

var ErrStatsPermissionDenied = errors.New("user does not have permission to view team statistics")

// functionLabels maps function levels to display names per organization.
var functionLabels = map[models.Organization][]string{
	models.OrganizationMale: {
		"Szeregowy", "Podzastępowy", "Zastępowy", "Przyboczny", "Drużynowy", "Wyższa funkcja",
	},
	models.OrganizationFemale: {
		"Szeregowa", "Podzastępowa", "Zastępowa", "Przyboczna", "Drużynowa", "Wyższa funkcja",
	},
}

// StatsService computes team statistics on demand. Everything is
// recomputed per request from the raw rows; there is no cache.
type StatsService struct {
	statsRepo repository.StatsRepository
	teamRepo  repository.TeamRepository
}

// NewStatsService creates a new StatsService
func NewStatsService(statsRepo repository.StatsRepository, teamRepo repository.TeamRepository) *StatsService {
	return &StatsService{
		statsRepo: statsRepo,
		teamRepo:  teamRepo,
	}
}

// HistogramBucket is one labeled count in a distribution
type HistogramBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ActivityWindow counts approvals inside a rolling window
type ActivityWindow struct {
	Days          int `json:"days"`
	TasksApproved int `json:"tasks_approved"`
	ActiveMembers int `json:"active_members"`
}

// PatrolComparison summarizes one patrol's progress
type PatrolComparison struct {
	PatrolID          uint64  `json:"patrol_id"`
	Name              string  `json:"name"`
	MemberCount       int     `json:"member_count"`
	WorksheetCount    int     `json:"worksheet_count"`
	AverageCompletion float64 `json:"average_completion"`
}

// Performer is one entry in the top performer ranking
type Performer struct {
	UserID        uint64 `json:"user_id"`
	Name          string `json:"name"`
	TasksApproved int    `json:"tasks_approved"`
}

// InactiveMember is a member without a recent approved task
type InactiveMember struct {
	UserID         uint64     `json:"user_id"`
	Name           string     `json:"name"`
	LastCompletion *time.Time `json:"last_completion"`
	MemberSince    time.Time  `json:"member_since"`
}

// TeamStatistics is the full statistics payload for one team
type TeamStatistics struct {
	MemberCount       int                `json:"member_count"`
	WorksheetCount    int                `json:"worksheet_count"`
	AverageCompletion float64            `json:"average_completion"`
	FunctionHistogram []HistogramBucket  `json:"function_histogram"`
	RankHistogram     []HistogramBucket  `json:"rank_histogram"`
	Activity          []ActivityWindow   `json:"activity"`
	Patrols           []PatrolComparison `json:"patrols"`
	TopPerformers     []Performer        `json:"top_performers"`
	InactiveMembers   []InactiveMember   `json:"inactive_members"`
}

// TeamStatistics computes the statistics payload for the actor's team
func (s *StatsService) TeamStatistics(actor *models.User, teamID uint64) (*TeamStatistics, error) {
	if !permissions.CanViewTeamStatistics(actor) || actor.TeamID() != teamID {
		return nil, ErrStatsPermissionDenied
	}

	team, err := s.teamRepo.FindTeam(teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to find team: %w", err)
	}
	members, err := s.statsRepo.ListActiveMembers(teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	sheets, err := s.statsRepo.ListTeamWorksheets(teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list worksheets: %w", err)
	}

	now := time.Now()
	stats := &TeamStatistics{
		MemberCount:       len(members),
		WorksheetCount:    len(sheets),
		AverageCompletion: averageCompletion(sheets),
		FunctionHistogram: functionHistogram(members, team.Organization),
		RankHistogram:     rankHistogram(members),
		Activity:          activityWindows(sheets, now),
		Patrols:           patrolComparison(members, sheets),
		TopPerformers:     topPerformers(members, sheets, now.AddDate(0, 0, -90)),
		InactiveMembers:   inactiveMembers(members, sheets, now.AddDate(0, 0, -90)),
	}
	return stats, nil
}

func averageCompletion(sheets []models.Worksheet) float64 {
	sum, counted := 0, 0
	for i := range sheets {
		if pct, ok := sheets[i].CompletionPercent(); ok {
			sum += pct
			counted++
		}
	}
	if counted == 0 {
		return 0
	}
	return float64(sum) / float64(counted)
}

func functionHistogram(members []models.User, org models.Organization) []HistogramBucket {
	labels, ok := functionLabels[org]
	if !ok {
		labels = functionLabels[models.OrganizationMale]
	}
	buckets := make([]HistogramBucket, len(labels))
	for i, label := range labels {
		buckets[i] = HistogramBucket{Label: label}
	}
	for _, m := range members {
		if m.Function >= 0 && m.Function < len(buckets) {
			buckets[m.Function].Count++
		}
	}
	return buckets
}

func rankHistogram(members []models.User) []HistogramBucket {
	counts := make(map[string]int)
	for _, m := range members {
		rank := m.ScoutRank
		if rank == "" {
			rank = "brak stopnia"
		}
		counts[rank]++
	}
	buckets := make([]HistogramBucket, 0, len(counts))
	for label, count := range counts {
		buckets = append(buckets, HistogramBucket{Label: label, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Label < buckets[j].Label
	})
	return buckets
}

func activityWindows(sheets []models.Worksheet, now time.Time) []ActivityWindow {
	windows := []ActivityWindow{{Days: 7}, {Days: 30}, {Days: 90}}
	for w := range windows {
		cutoff := now.AddDate(0, 0, -windows[w].Days)
		activeUsers := make(map[uint64]struct{})
		for i := range sheets {
			for _, task := range sheets[i].Tasks {
				if task.Status != models.TaskStatusApproved || task.ApprovalDate == nil {
					continue
				}
				if task.ApprovalDate.Before(cutoff) {
					continue
				}
				windows[w].TasksApproved++
				activeUsers[sheets[i].UserID] = struct{}{}
			}
		}
		windows[w].ActiveMembers = len(activeUsers)
	}
	return windows
}

func patrolComparison(members []models.User, sheets []models.Worksheet) []PatrolComparison {
	byPatrol := make(map[uint64]*PatrolComparison)
	order := make([]uint64, 0)
	for _, m := range members {
		if m.PatrolID == nil || m.Patrol == nil {
			continue
		}
		entry, ok := byPatrol[*m.PatrolID]
		if !ok {
			entry = &PatrolComparison{PatrolID: *m.PatrolID, Name: m.Patrol.Name}
			byPatrol[*m.PatrolID] = entry
			order = append(order, *m.PatrolID)
		}
		entry.MemberCount++
	}

	sums := make(map[uint64]int)
	counts := make(map[uint64]int)
	for i := range sheets {
		owner := &sheets[i].User
		if owner.ID == 0 || owner.PatrolID == nil {
			continue
		}
		entry, ok := byPatrol[*owner.PatrolID]
		if !ok {
			continue
		}
		entry.WorksheetCount++
		if pct, sheetOK := sheets[i].CompletionPercent(); sheetOK {
			sums[*owner.PatrolID] += pct
			counts[*owner.PatrolID]++
		}
	}
	for id, entry := range byPatrol {
		if counts[id] > 0 {
			entry.AverageCompletion = float64(sums[id]) / float64(counts[id])
		}
	}

	result := make([]PatrolComparison, 0, len(order))
	for _, id := range order {
		result = append(result, *byPatrol[id])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func topPerformers(members []models.User, sheets []models.Worksheet, cutoff time.Time) []Performer {
	names := make(map[uint64]string, len(members))
	for _, m := range members {
		names[m.ID] = m.DisplayName()
	}

	counts := make(map[uint64]int)
	for i := range sheets {
		for _, task := range sheets[i].Tasks {
			if task.Status != models.TaskStatusApproved || task.ApprovalDate == nil {
				continue
			}
			if task.ApprovalDate.Before(cutoff) {
				continue
			}
			counts[sheets[i].UserID]++
		}
	}

	performers := make([]Performer, 0, len(counts))
	for userID, count := range counts {
		name, ok := names[userID]
		if !ok {
			continue
		}
		performers = append(performers, Performer{UserID: userID, Name: name, TasksApproved: count})
	}
	sort.Slice(performers, func(i, j int) bool {
		if performers[i].TasksApproved != performers[j].TasksApproved {
			return performers[i].TasksApproved > performers[j].TasksApproved
		}
		return performers[i].Name < performers[j].Name
	})
	if len(performers) > 10 {
		performers = performers[:10]
	}
	return performers
}

func inactiveMembers(members []models.User, sheets []models.Worksheet, cutoff time.Time) []InactiveMember {
	lastCompletion := make(map[uint64]time.Time)
	for i := range sheets {
		for _, task := range sheets[i].Tasks {
			if task.Status != models.TaskStatusApproved || task.ApprovalDate == nil {
				continue
			}
			if current, ok := lastCompletion[sheets[i].UserID]; !ok || task.ApprovalDate.After(current) {
				lastCompletion[sheets[i].UserID] = *task.ApprovalDate
			}
		}
	}

	inactive := make([]InactiveMember, 0)
	for _, m := range members {
		last, ok := lastCompletion[m.ID]
		if ok && !last.Before(cutoff) {
			continue
		}
		entry := InactiveMember{UserID: m.ID, Name: m.DisplayName(), MemberSince: m.CreatedAt}
		if ok {
			completion := last
			entry.LastCompletion = &completion
		}
		inactive = append(inactive, entry)
	}
	sort.Slice(inactive, func(i, j int) bool {
		a, b := inactive[i].LastCompletion, inactive[j].LastCompletion
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return inactive[i].MemberSince.Before(inactive[j].MemberSince)
	})
	return inactive
}
