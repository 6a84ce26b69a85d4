package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"

	"github.com/aaronzipp/werewolf-gm/internal/models"
)

// roleOrder fixes the bag layout so a seed always produces the same deal
var roleOrder = []models.Role{models.RoleSeer, models.RoleWitch, models.RoleWolf, models.RoleVillager}

func wolfCount(players int) int {
	switch {
	case players <= 6:
		return 1
	case players <= 9:
		return 2
	default:
		return 3
	}
}

// Distribution returns how many of each role a table of n players receives
func Distribution(n int) (map[models.Role]int, error) {
	if n < MinPlayers {
		return nil, Errorf(KindInsufficientPlayers, "At least %d players are required to deal roles (have %d).", MinPlayers, n)
	}
	dist := map[models.Role]int{
		models.RoleSeer:  1,
		models.RoleWitch: 0,
		models.RoleWolf:  wolfCount(n),
	}
	if n >= 6 {
		dist[models.RoleWitch] = 1
	}
	dist[models.RoleVillager] = n - dist[models.RoleSeer] - dist[models.RoleWitch] - dist[models.RoleWolf]
	return dist, nil
}

// AssignRolesToIDs deals roles to ids. The ids and the role bag are shuffled
// independently from one source and paired by position. A nil seed draws one
// from crypto/rand.
func AssignRolesToIDs(ids []string, seed *int64) (map[string]models.Role, error) {
	dist, err := Distribution(len(ids))
	if err != nil {
		return nil, err
	}

	bag := make([]models.Role, 0, len(ids))
	for _, role := range roleOrder {
		for range dist[role] {
			bag = append(bag, role)
		}
	}

	s, err := resolveSeed(seed)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(s))

	order := make([]string, len(ids))
	copy(order, ids)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	rng.Shuffle(len(bag), func(i, j int) { bag[i], bag[j] = bag[j], bag[i] })

	assignments := make(map[string]models.Role, len(order))
	for i, id := range order {
		assignments[id] = bag[i]
	}
	return assignments, nil
}

func resolveSeed(seed *int64) (int64, error) {
	if seed != nil {
		return *seed, nil
	}
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
