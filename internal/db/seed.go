package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedSectors = [][2]string{
	{"fintech", "fintech,payments"},
	{"climate", "climate,energy"},
	{"healthtech", "healthtech,biotech"},
	{"devtools", "devtools,infra"},
	{"logistics", "logistics,supplychain"},
}

var seedStages = []string{"pre-seed", "seed", "series-a"}
var seedLocations = []string{"SF", "NYC", "London", "Berlin"}

// SeedDemoData resets the database and populates it with demo founders,
// investors and a web of likes/passes, including guaranteed mutual pairs so
// matches exist out of the box.
func SeedDemoData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"daily_limits", "matches", "profile_views", "passes", "likes", "profiles"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE profiles AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE likes AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE matches AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('profiles','likes','matches')")
	}

	log.Println("Cleared existing data")

	// 10 founders + 10 investors
	for i := 1; i <= 20; i++ {
		sector := seedSectors[i%len(seedSectors)]
		p := Profile{
			Role:            RoleFounder,
			Name:            fmt.Sprintf("Founder %d", i),
			Sector:          sector[0],
			Sectors:         sector[1],
			Stage:           seedStages[i%len(seedStages)],
			Location:        seedLocations[i%len(seedLocations)],
			TrustScore:      0.3 + 0.6*r.Float64(),
			EngagementScore: r.Float64(),
			Active:          true,
		}
		if i > 10 {
			p.Role = RoleInvestor
			p.Name = fmt.Sprintf("Investor %d", i-10)
			p.CheckSizeMinUSD = uint64(50_000 * (1 + r.Intn(10)))
			p.CheckSizeMaxUSD = p.CheckSizeMinUSD * uint64(2+r.Intn(8))
		} else {
			p.AnnualRevenueUSD = uint64(r.Intn(2_000_000))
			p.TeamSize = uint32(2 + r.Intn(30))
		}

		if err := db.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
	}
	log.Println("Seeded 20 profiles.")

	// Cross-side likes, every 3rd pair mutual (creating a match).
	counter := 0
	for f := uint64(1); f <= 10; f++ {
		for j := 0; j < 4; j++ {
			inv := uint64(11 + r.Intn(10))

			like := Like{SenderID: f, RecipientID: inv, Tier: TierStandard, Disposition: DispositionPending}
			if counter%3 == 0 {
				like.Disposition = DispositionMatched
				recip := Like{SenderID: inv, RecipientID: f, Tier: TierStandard, Disposition: DispositionMatched}
				if err := upsertLike(db, &recip); err != nil {
					return err
				}
				m := Match{FounderID: f, InvestorID: inv, Status: MatchActive}
				db.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "founder_id"}, {Name: "investor_id"}},
					DoNothing: true,
				}).Create(&m)
			}
			if err := upsertLike(db, &like); err != nil {
				return err
			}

			// the occasional pass in the other direction
			if counter%5 == 0 {
				pass := Pass{UserID: inv, PassedProfileID: uint64(1 + r.Intn(10))}
				db.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "user_id"}, {Name: "passed_profile_id"}},
					DoNothing: true,
				}).Create(&pass)
			}

			counter++
		}
	}
	log.Printf("Seeded %d like pairs.", counter)

	return nil
}

func upsertLike(db *gorm.DB, like *Like) error {
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sender_id"}, {Name: "recipient_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"disposition"}),
	}).Create(like).Error
	if err != nil {
		return fmt.Errorf("failed to seed like: %w", err)
	}
	return nil
}
