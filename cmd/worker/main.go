package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classtrack/internal/cloudinary"
	"classtrack/internal/config"
	"classtrack/internal/idcard"
	"classtrack/internal/queue"
	"classtrack/internal/roster"
	"classtrack/internal/store"
)

// Worker consumes card-render jobs, draws the ID card PNG, uploads it to
// Cloudinary, and records the URL on the student.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var jobs queue.Queue
	if cfg.QueueBackend == "memory" {
		jobs = queue.NewInMemory(64)
	} else {
		jobs = queue.NewRedisQueue(redisClient.Client, "classtrack:idcards")
	}

	if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
		log.Fatal("worker requires Cloudinary config to store rendered cards")
	}
	cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)

	repo := roster.NewRepository(db.Client)

	messages, err := jobs.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for card jobs...")
	for job := range messages {
		st, err := repo.GetStudent(ctx, job.TeacherID, job.StudentID)
		if err != nil {
			log.Printf("fetch student %s failed: %v", job.StudentID, err)
			continue
		}

		png, err := idcard.Render(idcard.Info{
			Name:      st.Name,
			RollNo:    st.RollNo,
			Grade:     st.Grade,
			StudentID: st.ID,
		})
		if err != nil {
			log.Printf("render card for %s failed: %v", st.ID, err)
			continue
		}

		result, err := cdn.UploadBytes(png, fmt.Sprintf("card_%s.png", st.RollNo), "cards")
		if err != nil {
			log.Printf("upload card for %s failed: %v", st.ID, err)
			continue
		}

		if err := repo.SetStudentCard(ctx, job.TeacherID, st.ID, result.SecureURL); err != nil {
			log.Printf("save card url for %s failed: %v", st.ID, err)
			continue
		}
		log.Printf("card rendered for %s (%s)", st.Name, result.SecureURL)

		time.Sleep(10 * time.Millisecond) // small delay between renders
	}

	log.Println("worker stopped")
}
