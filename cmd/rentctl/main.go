package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "vehicle":
		handleVehicle(args)
	case "booking":
		handleBooking(args)
	case "admin":
		handleAdmin(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// envelope mirrors the API response shape.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: rentctl auth <register|login|logout|who>")
		return
	}

	switch args[0] {
	case "register":
		registerUser(args[1:])
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", args[0])
	}
}

func handleVehicle(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: rentctl vehicle <list|available|add|delete>")
		return
	}

	switch args[0] {
	case "list":
		listVehicles(false)
	case "available":
		listVehicles(true)
	case "add":
		addVehicle(args[1:])
	case "delete":
		deleteVehicle(args[1:])
	default:
		fmt.Printf("unknown vehicle command: %s\n", args[0])
	}
}

func handleBooking(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: rentctl booking <list|create|quote|cancel|return>")
		return
	}

	switch args[0] {
	case "list":
		listBookings()
	case "create":
		createBooking(args[1:])
	case "quote":
		quoteBooking(args[1:])
	case "cancel":
		setBookingStatus(args[1:], "cancelled")
	case "return":
		setBookingStatus(args[1:], "returned")
	default:
		fmt.Printf("unknown booking command: %s\n", args[0])
	}
}

func handleAdmin(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: rentctl admin <sweep|users>")
		return
	}

	switch args[0] {
	case "sweep":
		runSweep()
	case "users":
		listUsers()
	default:
		fmt.Printf("unknown admin command: %s\n", args[0])
	}
}

// Auth commands

func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")
	phone := fs.String("phone", "", "phone number (optional)")

	fs.Parse(args)

	if *name == "" || *email == "" || *password == "" {
		fmt.Println("Error: name, email, and password are required")
		fs.PrintDefaults()
		return
	}

	env, err := doRequest("POST", "/auth/register", map[string]string{
		"name":     *name,
		"email":    *email,
		"password": *password,
		"phone":    *phone,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !env.Success {
		fmt.Printf("✗ Registration failed: %s\n", env.Message)
		return
	}
	fmt.Printf("✓ User registered: %s\n", *email)
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	env, err := doRequest("POST", "/auth/login", map[string]string{
		"email":    *email,
		"password": *password,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !env.Success {
		fmt.Printf("✗ Login failed: %s\n", env.Message)
		return
	}

	var result struct {
		Token string `json:"token"`
	}
	json.Unmarshal(env.Data, &result)
	if result.Token == "" {
		fmt.Println("✗ Login response carried no token")
		return
	}
	saveToken(result.Token)
	fmt.Printf("✓ Logged in as: %s\n", *email)
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Vehicle commands

func listVehicles(availableOnly bool) {
	path := "/vehicles"
	if availableOnly {
		path = "/vehicles/available"
	}

	env, err := doRequest("GET", path, nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !env.Success {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}

	var vehicles []struct {
		ID                 string  `json:"id"`
		VehicleName        string  `json:"vehicleName"`
		Type               string  `json:"type"`
		RegistrationNumber string  `json:"registrationNumber"`
		DailyRentPrice     float64 `json:"dailyRentPrice"`
		AvailabilityStatus string  `json:"availabilityStatus"`
	}
	json.Unmarshal(env.Data, &vehicles)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tREGISTRATION\tPRICE/DAY\tSTATUS")
	for _, v := range vehicles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
			v.ID, v.VehicleName, v.Type, v.RegistrationNumber, v.DailyRentPrice, v.AvailabilityStatus)
	}
	w.Flush()
}

func addVehicle(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	name := fs.String("name", "", "vehicle name")
	vtype := fs.String("type", "", "vehicle type (car, bike, van, SUV)")
	registration := fs.String("registration", "", "registration number")
	price := fs.Float64("price", 0, "daily rent price")

	fs.Parse(args)

	if *name == "" || *vtype == "" || *registration == "" || *price <= 0 {
		fmt.Println("Error: name, type, registration, and a positive price are required")
		fs.PrintDefaults()
		return
	}

	env, err := doRequest("POST", "/vehicles", map[string]any{
		"vehicleName":        *name,
		"type":               *vtype,
		"registrationNumber": *registration,
		"dailyRentPrice":     *price,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !env.Success {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}
	fmt.Printf("✓ Vehicle added: %s\n", *registration)
}

func deleteVehicle(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: rentctl vehicle delete <vehicle-id>")
		return
	}

	env, err := doRequest("DELETE", "/vehicles/"+args[0], nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !env.Success {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}
	fmt.Println("✓ Vehicle deleted")
}

// Booking commands

func listBookings() {
	env, err := doRequest("GET", "/bookings", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !env.Success {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}

	var bookings []struct {
		ID            string  `json:"id"`
		VehicleName   string  `json:"vehicleName"`
		RentStartDate string  `json:"rentStartDate"`
		RentEndDate   string  `json:"rentEndDate"`
		TotalPrice    float64 `json:"totalPrice"`
		Status        string  `json:"status"`
	}
	json.Unmarshal(env.Data, &bookings)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVEHICLE\tSTART\tEND\tTOTAL\tSTATUS")
	for _, b := range bookings {
		fmt.Fprintf(w, "%s\t%s\t%.10s\t%.10s\t%.2f\t%s\n",
			b.ID, b.VehicleName, b.RentStartDate, b.RentEndDate, b.TotalPrice, b.Status)
	}
	w.Flush()
}

func createBooking(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	vehicle := fs.String("vehicle", "", "vehicle id")
	start := fs.String("start", "", "rent start date (YYYY-MM-DD)")
	end := fs.String("end", "", "rent end date (YYYY-MM-DD)")
	customer := fs.String("customer", "", "customer id (admin only)")

	fs.Parse(args)

	if *vehicle == "" || *start == "" || *end == "" {
		fmt.Println("Error: vehicle, start, and end are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"vehicleId":     *vehicle,
		"rentStartDate": *start,
		"rentEndDate":   *end,
	}
	if *customer != "" {
		payload["customerId"] = *customer
	}

	env, err := doRequest("POST", "/bookings", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !env.Success {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}

	var booking struct {
		ID         string  `json:"id"`
		TotalPrice float64 `json:"totalPrice"`
	}
	json.Unmarshal(env.Data, &booking)
	fmt.Printf("✓ Booking created: %s (total %.2f)\n", booking.ID, booking.TotalPrice)
}

func quoteBooking(args []string) {
	fs := flag.NewFlagSet("quote", flag.ExitOnError)
	vehicle := fs.String("vehicle", "", "vehicle id")
	start := fs.String("start", "", "rent start date (YYYY-MM-DD)")
	end := fs.String("end", "", "rent end date (YYYY-MM-DD)")

	fs.Parse(args)

	if *vehicle == "" || *start == "" || *end == "" {
		fmt.Println("Error: vehicle, start, and end are required")
		fs.PrintDefaults()
		return
	}

	env, err := doRequest("POST", "/bookings/quote", map[string]string{
		"vehicleId":     *vehicle,
		"rentStartDate": *start,
		"rentEndDate":   *end,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !env.Success {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}

	var quote struct {
		Days       int     `json:"days"`
		TotalPrice float64 `json:"totalPrice"`
	}
	json.Unmarshal(env.Data, &quote)
	fmt.Printf("✓ %d day(s), total %.2f\n", quote.Days, quote.TotalPrice)
}

func setBookingStatus(args []string, status string) {
	if len(args) < 1 {
		fmt.Printf("Usage: rentctl booking %s <booking-id>\n", map[string]string{
			"cancelled": "cancel", "returned": "return",
		}[status])
		return
	}

	env, err := doRequest("PUT", "/bookings/"+args[0], map[string]string{"status": status})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !env.Success {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}
	fmt.Printf("✓ Booking %s\n", status)
}

// Admin commands

func runSweep() {
	env, err := doRequest("POST", "/admin/sweep", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !env.Success {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}

	var result struct {
		BookingsReturned int `json:"bookingsReturned"`
		VehiclesFreed    int `json:"vehiclesFreed"`
	}
	json.Unmarshal(env.Data, &result)
	fmt.Printf("✓ Sweep done: %d booking(s) returned, %d vehicle(s) freed\n",
		result.BookingsReturned, result.VehiclesFreed)
}

func listUsers() {
	env, err := doRequest("GET", "/users", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !env.Success {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}

	var users []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	json.Unmarshal(env.Data, &users)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
	}
	w.Flush()
}

// Helper functions

func doRequest(method, path string, payload any) (*envelope, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, getAPIURL()+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := loadToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("unexpected response (status %d)", resp.StatusCode)
	}
	return &env, nil
}

func getAPIURL() string {
	if url := os.Getenv("RENTWHEELS_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api/v1"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.rentwheels/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.rentwheels", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func printUsage() {
	fmt.Print(`RentWheels CLI

Usage:
  rentctl <command> [options]

Commands:
  auth     User authentication (register, login, logout, who)
  vehicle  Fleet operations (list, available, add, delete)
  booking  Booking operations (list, create, quote, cancel, return)
  admin    Admin operations (sweep, users) - admin access required
  help     Show this help message

Environment Variables:
  RENTWHEELS_API    API endpoint (default: http://localhost:8080/api/v1)

Examples:
  rentctl auth register -name "Jane Doe" -email jane@example.com -password secret1
  rentctl auth login -email jane@example.com -password secret1
  rentctl vehicle available
  rentctl booking create -vehicle <vehicle-id> -start 2025-06-01 -end 2025-06-04
  rentctl admin sweep
`)
}
