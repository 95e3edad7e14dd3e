// Команда route-report обучает модель на исторических данных и печатает
// оценку безопасности каждого маршрута между двумя адресами.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"route-safety-go/internal/app"
	"route-safety-go/internal/client"
	"route-safety-go/internal/config"
	"route-safety-go/internal/geofence"
	"route-safety-go/internal/service"
	"route-safety-go/pkg/models"

	"github.com/sirupsen/logrus"
)

func main() {
	start := flag.String("start", "Austin, TX", "Origin address")
	end := flag.String("end", "Houston, TX", "Destination address")
	envFile := flag.String("env", ".env", "Path to .env file")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall deadline")
	flag.Parse()

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		logrus.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	if cfg.Directions.APIKey == "" || cfg.Directions.APIKey == "your_api_key_here" {
		logrus.Fatal("GOOGLE_MAPS_API_KEY is missing or placeholder")
	}

	logger := app.NewLogger(cfg.Logging.Level)
	logger.SetOutput(os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	surface, err := app.TrainModel(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Ошибка обучения модели: %v", err)
	}
	fence := geofence.Load(ctx, cfg.Hotspots.Source, geofence.AxisOrder(cfg.Hotspots.AxisOrder), logger)
	directions := client.NewDirectionsClient(cfg.Directions.BaseURL, cfg.Directions.APIKey, cfg.Directions.Timeout, logger)

	svc := service.NewSafetyService(directions, surface, fence, cfg.Hotspots.BufferMeters, nil, logger)
	resp, err := svc.AnalyzeRoute(ctx, models.AnalyzeRequest{Start: *start, End: *end})
	if err != nil {
		logger.Fatalf("Ошибка анализа маршрутов: %v", err)
	}

	printReport(os.Stdout, resp)
}

// printReport печатает маршруты в порядке провайдера, нумерация с 1
func printReport(w io.Writer, resp *models.AnalyzeResponse) {
	for i, d := range resp.RouteDetails {
		fmt.Fprintf(w, "Route %d:  Safety %.2f/10  •  %.1f min", i+1, d.SafetyScore, d.DurationMinutes)
		if d.Distance != "" {
			fmt.Fprintf(w, "  •  %s", d.Distance)
		}
		if d.HotspotSteps > 0 {
			fmt.Fprintf(w, "  •  %d high-crash step(s)", d.HotspotSteps)
		}
		fmt.Fprintln(w)
		for _, step := range d.Steps {
			fmt.Fprintf(w, "  - %s\n", strings.TrimSpace(step))
		}
		fmt.Fprintln(w, "…")
	}

	if resp.SafestIndex < 0 {
		fmt.Fprintln(w, "No routes found")
		return
	}
	best := resp.RouteDetails[resp.SafestIndex]
	fmt.Fprintf(w, "Safest Route: %d  (%.2f/10)\n", resp.SafestIndex+1, best.SafetyScore)
}
