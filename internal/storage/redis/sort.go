package redis

import (
	"sort"

	"github.com/mcoot/tourney/internal/model"
)

// sortRegistrations orders SET members by creation, oldest first
func sortRegistrations(regs []*model.Registration) {
	sort.Slice(regs, func(i, j int) bool {
		if regs[i].CreatedAt.Equal(regs[j].CreatedAt) {
			return regs[i].ID < regs[j].ID
		}
		return regs[i].CreatedAt.Before(regs[j].CreatedAt)
	})
}
