package game

import "github.com/heist-game/backend/internal/models"

// TallyVotes counts one target per voter and decides the winning team.
// A shared maximum is a tie and nobody is voted out; the Bad team wins ties.
// teamOf resolves a target to its team.
func TallyVotes(votes map[string]string, teamOf func(playerID string) models.Team) models.VoteResult {
	result := models.VoteResult{Counts: make(map[string]int)}
	for _, targetID := range votes {
		result.Counts[targetID]++
	}

	leaders := 0
	for targetID, count := range result.Counts {
		switch {
		case count > result.MaxVotes:
			result.MaxVotes = count
			result.VotedOut = targetID
			leaders = 1
		case count == result.MaxVotes:
			leaders++
		}
	}

	if leaders != 1 {
		result.IsTie = true
		result.VotedOut = ""
		result.Winner = models.TeamBad
		return result
	}

	if teamOf(result.VotedOut) == models.TeamBad {
		result.Winner = models.TeamGood
	} else {
		result.Winner = models.TeamBad
	}
	return result
}
