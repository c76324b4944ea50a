package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Event is the normalized event record from the Ticketmaster Discovery API.
type Event struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Date     string  `json:"date,omitempty"`
	Time     string  `json:"time,omitempty"`
	Location string  `json:"location,omitempty"`
	Price    float64 `json:"price"`
	URL      string  `json:"url,omitempty"`
	Image    string  `json:"image,omitempty"`
}

type EventQuery struct {
	Destination string
	StartDate   string // YYYY-MM-DD
	EndDate     string // YYYY-MM-DD
	CountryCode string
	Size        int
	Page        int
}

type TicketmasterClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var ticketmasterClient *TicketmasterClient

func InitTicketmaster() {
	// Several env var names are accepted for convenience.
	apiKey := os.Getenv("TICKETMASTER_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("TICKETMASTER_CONSUMER_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("TM_API_KEY")
	}

	ticketmasterClient = &TicketmasterClient{
		apiKey:  apiKey,
		baseURL: "https://app.ticketmaster.com/discovery/v2",
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}

	if apiKey == "" {
		log.Println("⚠️  TICKETMASTER_API_KEY not set — event search will return configuration errors")
		return
	}
	log.Println("✅ Ticketmaster client initialized")
}

func GetTicketmasterClient() *TicketmasterClient {
	return ticketmasterClient
}

func (c *TicketmasterClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

type tmEventsResponse struct {
	Embedded struct {
		Events []tmEvent `json:"events"`
	} `json:"_embedded"`
}

type tmEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Dates struct {
		Start struct {
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
	} `json:"dates"`
	PriceRanges []struct {
		Min float64 `json:"min"`
	} `json:"priceRanges"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Embedded struct {
		Venues []struct {
			Name string `json:"name"`
			City struct {
				Name string `json:"name"`
			} `json:"city"`
		} `json:"venues"`
	} `json:"_embedded"`
}

// SearchEvents looks up events around the destination within the trip dates.
// The city token of the destination is used as the keyword; country codes are
// normalized (UK becomes GB).
func (c *TicketmasterClient) SearchEvents(q EventQuery) ([]Event, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("ticketmaster not configured")
	}

	cityKeyword := strings.TrimSpace(strings.Split(q.Destination, ",")[0])
	if cityKeyword == "" {
		cityKeyword = q.Destination
	}

	size := q.Size
	if size <= 0 {
		size = 20
	}

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("keyword", cityKeyword)
	params.Set("startDateTime", q.StartDate+"T00:00:00Z")
	params.Set("endDateTime", q.EndDate+"T23:59:59Z")
	params.Set("size", strconv.Itoa(size))
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("sort", "date,asc")

	if cc := strings.ToUpper(strings.TrimSpace(q.CountryCode)); cc != "" {
		if cc == "UK" {
			cc = "GB"
		}
		if len(cc) == 2 && isAlpha(cc) {
			params.Set("countryCode", cc)
		}
	}

	endpoint := c.baseURL + "/events.json?" + params.Encode()

	var body []byte
	err := withRetry(func() error {
		resp, err := c.httpClient.Get(endpoint)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, _ = io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("ticketmaster error (%d): %s", resp.StatusCode, truncate(string(body), 300))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var parsed tmEventsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse events response: %w", err)
	}

	events := make([]Event, 0, len(parsed.Embedded.Events))
	for _, ev := range parsed.Embedded.Events {
		events = append(events, mapEvent(ev))
	}
	return events, nil
}

func mapEvent(ev tmEvent) Event {
	price := 0.0
	if len(ev.PriceRanges) > 0 {
		price = ev.PriceRanges[0].Min
	}

	venueName := ""
	city := ""
	if len(ev.Embedded.Venues) > 0 {
		venueName = ev.Embedded.Venues[0].Name
		city = ev.Embedded.Venues[0].City.Name
	}
	location := venueName
	if venueName != "" && city != "" {
		location = venueName + " • " + city
	} else if city != "" {
		location = city
	}

	image := ""
	if len(ev.Images) > 0 {
		image = ev.Images[0].URL
	}

	return Event{
		ID:       ev.ID,
		Name:     ev.Name,
		Date:     ev.Dates.Start.LocalDate,
		Time:     ev.Dates.Start.LocalTime,
		Location: location,
		Price:    price,
		URL:      ev.URL,
		Image:    image,
	}
}
