package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/datbaby/confirmation-relay/internal/mapping"
)

// seed generates a realistic mapping snapshot (phone -> appointments) and
// saves it through the file store, producing the same mapeamento.json the
// upload endpoint would. Useful for local runs against a mock scheduling API.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dataDir := getEnv("DATA_DIR", ".")
	phones := getInt("SEED_PHONES", 50)

	gofakeit.Seed(time.Now().UnixNano())

	doctors := []string{
		"Dra. Ana Beatriz Coutinho",
		"Dr. Carlos Eduardo Menezes",
		"Dra. Fernanda Lopes",
		"Dr. João Pedro Azevedo",
		"Dra. Mariana Castro",
		"Dr. Ricardo Tavares",
	}

	snap := make(mapping.Snapshot, phones)
	nextID := int64(500000)
	total := 0

	for i := 0; i < phones; i++ {
		phone := fakePhone()
		name := gofakeit.Name()

		count := gofakeit.Number(1, 3)
		refs := make([]mapping.AppointmentRef, 0, count)
		for j := 0; j < count; j++ {
			day := time.Now().AddDate(0, 0, gofakeit.Number(0, 6))
			refs = append(refs, mapping.AppointmentRef{
				ID:     strconv.FormatInt(nextID, 10),
				Name:   name,
				Date:   day.Format("02/01/2006"),
				Time:   fmt.Sprintf("%02d:%02d", gofakeit.Number(8, 17), 15*gofakeit.Number(0, 3)),
				Doctor: doctors[gofakeit.Number(0, len(doctors)-1)],
			})
			nextID++
			total++
		}
		snap[phone] = refs
	}

	store := mapping.NewFileStore(dataDir)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.SaveMapping(ctx, snap); err != nil {
		log.Fatalf("save mapping: %v", err)
	}

	log.Printf("seed complete: %d phone(s), %d appointment(s) written to %s", len(snap), total, dataDir)
}

// fakePhone builds a Brazilian mobile number in the "55 DD-NNNNN-NNNN"
// grouping the exported snapshots use.
func fakePhone() string {
	ddd := gofakeit.Number(11, 99)
	prefix := gofakeit.Number(90000, 99999)
	suffix := gofakeit.Number(1000, 9999)
	return fmt.Sprintf("55 %d-%d-%d", ddd, prefix, suffix)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}
