package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/zeroeau/washpro-technician/internal/client/models"
	"github.com/zeroeau/washpro-technician/internal/client/services"
)

// cmdOpen runs the per-mission workflow loop. The session's step is derived
// from the booking's persisted status, so reopening a mission resumes where
// durable state says it is.
//
// Commands:
//   - info             — booking details, current step, distance
//   - travel           — start live distance tracking (travel step)
//   - arrived          — move to before-photos
//   - shoot <n> <file> — capture photo file into slot n (1-5)
//   - start            — all before slots full: mark IN_PROGRESS, move on
//   - finish           — all after slots full: mark COMPLETED
//   - uploads          — show in-flight photo uploads
//   - back             — close the mission screen
func (a *App) cmdOpen(ctx context.Context, bookingID string) {
	booking, ok := a.engine.BookingByID(bookingID)
	if !ok {
		fmt.Println("mission not found")
		return
	}

	session := services.NewMissionSession(*booking, a.engine, a.uploader, a.sampler, a.log)
	session.OnUploadError = func(kind models.PhotoKind, slot int, err error) {
		fmt.Printf("\nupload of %s photo %d failed: %v\n", strings.ToLower(string(kind)), slot+1, err)
	}
	defer session.Close()

	fmt.Printf("mission %s — %s, %s\n", booking.ID, booking.FullName, booking.Address)
	for {
		fmt.Printf("mission[%s]> ", session.Step())
		line, err := a.reader.ReadString('\n')
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "back":
			return
		case "info":
			a.printMissionInfo(session)
		case "travel":
			if err := session.StartTravel(ctx); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		case "arrived":
			if err := session.BeginPhotos(); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		case "shoot":
			a.cmdShoot(ctx, session, parts[1:])
		case "start":
			if err := session.StartWork(ctx); err != nil {
				fmt.Printf("cannot start: %v\n", err)
			} else {
				fmt.Println("mission in progress, take the after photos")
			}
		case "finish":
			if err := session.Finish(ctx); err != nil {
				fmt.Printf("cannot finish: %v\n", err)
			} else {
				fmt.Println("mission completed")
			}
		case "uploads":
			fmt.Printf("in-flight uploads: %d\n", session.InFlightUploads())
		default:
			fmt.Println("commands: info, travel, arrived, shoot <n> <file>, start, finish, uploads, back")
		}
	}
}

func (a *App) printMissionInfo(session *services.MissionSession) {
	b := session.Booking()
	fmt.Printf("  customer: %s (%s)\n", b.FullName, b.Phone)
	fmt.Printf("  vehicle:  %s %s\n", b.VehicleBrand, b.VehicleModel)
	fmt.Printf("  service:  %s, %.2f MAD\n", b.ServiceTier, b.Amount)
	fmt.Printf("  when:     %s %s\n", b.Date, b.Time)
	fmt.Printf("  where:    %s (distance %s)\n", b.Address, session.DistanceLabel())
	fmt.Printf("  step:     %s\n", session.Step())
	printSlots("before", session.Photos(models.PhotoBefore))
	printSlots("after", session.Photos(models.PhotoAfter))
}

func printSlots(label string, slots []string) {
	filled := 0
	for _, s := range slots {
		if s != "" {
			filled++
		}
	}
	fmt.Printf("  %s photos: %d/%d\n", label, filled, len(slots))
}

func (a *App) cmdShoot(ctx context.Context, session *services.MissionSession, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: shoot <slot 1-5> <image file>")
		return
	}
	slot, err := strconv.Atoi(args[0])
	if err != nil || slot < 1 {
		fmt.Println("slot must be a number from 1 to 5")
		return
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Printf("error reading image: %v\n", err)
		return
	}

	kind := models.PhotoBefore
	if session.Step() == services.StepPhotosAfter {
		kind = models.PhotoAfter
	}

	if err := session.CapturePhoto(ctx, kind, slot-1, args[1], data, http.DetectContentType(data)); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("photo %d captured, uploading in background\n", slot)
}
