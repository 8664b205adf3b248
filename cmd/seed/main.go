package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/kimo-edu/course-catalog/internal/repository"
	"github.com/kimo-edu/course-catalog/internal/store"
)

type seedChapter struct {
	Name string `json:"name"`
}

type seedCourse struct {
	Name     string        `json:"name"`
	Domain   []string      `json:"domain"`
	Chapters []seedChapter `json:"chapters"`
}

func main() {
	var (
		data       = flag.String("data", "seed-catalog.json", "path to catalog seed file")
		migrations = flag.String("migrations", "", "apply migrations from this directory before seeding")
	)
	flag.Parse()

	_ = godotenv.Load()
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		log.Fatal("DB_URL is required")
	}

	file, err := os.ReadFile(*data)
	if err != nil {
		log.Fatalf("read seed data: %v", err)
	}

	var payload []seedCourse
	if err := json.Unmarshal(file, &payload); err != nil {
		log.Fatalf("parse seed data: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	st, err := store.New(ctx, dbURL, store.Options{})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer st.Close()

	if *migrations != "" {
		if err := st.ApplyMigrations(ctx, *migrations); err != nil {
			log.Fatalf("apply migrations: %v", err)
		}
	}

	repo := repository.New(st)
	for _, sc := range payload {
		course, err := repo.Courses.Create(ctx, repository.CourseCreateParams{
			Name:   sc.Name,
			Domain: sc.Domain,
		})
		if err != nil {
			log.Fatalf("create course %q: %v", sc.Name, err)
		}
		for _, ch := range sc.Chapters {
			if _, err := repo.Chapters.Create(ctx, repository.ChapterCreateParams{
				CourseID: course.ID,
				Name:     ch.Name,
			}); err != nil {
				log.Fatalf("create chapter %q: %v", ch.Name, err)
			}
		}
		log.Printf("seeded course %q with %d chapters", sc.Name, len(sc.Chapters))
	}
}
