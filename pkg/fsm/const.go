package fsm

const (
	StateFindAwaitingLocation = "find_awaiting_location"
	StateFindDone             = "find_done"
)

const (
	StateReportAwaitingLocation = "report_awaiting_location"
	StateReportAwaitingMachine  = "report_awaiting_machine"
	StateReportAwaitingStatus   = "report_awaiting_status"
	StateReportDone             = "report_done"
)

const (
	StateReminderAwaitingFrequency = "reminder_awaiting_frequency"
	StateReminderAwaitingDay       = "reminder_awaiting_day"
	StateReminderAwaitingTime      = "reminder_awaiting_time"
	StateReminderDone              = "reminder_done"
)

const (
	EventLocationResolved = "location_resolved"
)

const (
	EventLocationShared = "location_shared"
	EventMachineChosen  = "machine_chosen"
	EventStatusReported = "status_reported"
	EventChooseAgain    = "choose_again"
)

const (
	EventFrequencyChosen = "frequency_chosen"
	EventDayChosen       = "day_chosen"
	EventTimeChosen      = "time_chosen"
	EventUnsupported     = "unsupported"
)

const (
	CommandStart  = "start"
	CommandFind   = "find"
	CommandReport = "report"
	CommandSet    = "set"
	CommandAbout  = "about"
	CommandCancel = "cancel"
)

const (
	ButtonShareLocation = "Share Location"
	ButtonMonthly       = "Monthly"
)

const (
	FlowOutcomeCompleted = "completed"
	FlowOutcomeCancelled = "cancelled"
	FlowOutcomeAborted   = "aborted"
)

const (
	msgWelcome = "<b>Welcome to BottleCanGowhere!</b>\n\n" +
		"I'm here to assist you with Bottles & Cans Recycling. How can I help you today?\n" +
		"/find Find Reverse Vending Machines (RVMs)\n" +
		"/report Report RVM Status\n" +
		"/set Set Reminders\n" +
		"/about About\n" +
		"/cancel Cancel"

	msgAbout = "Recycle N Save is a joint initiative by F&amp;N and NEA to place Smart Reverse Vending Machines across Singapore " +
		"to encourage recycling of used plastic drink bottles and aluminium drink cans amongst Singaporeans.\n" +
		"https://recyclensave.sg/\n" +
		"Singapore, 21 March 2023 - The National Environment Agency (NEA) has announced details of the beverage container return scheme (Scheme). " +
		"Under the Scheme, all pre-packaged beverages in plastic bottles and metal cans ranging from 150 millilitres to 3 litres " +
		"will have a refundable deposit of 10 cents. This deposit will be fully refunded when empty beverage containers are returned " +
		"at designated return points.\n" +
		"https://www.nea.gov.sg/media/news/news/index/the-beverage-container-return-scheme-highlights-singapore-s-commitment-to-tackle-packaging-waste"

	msgUseStart     = "Welcome! Please use /start to begin."
	msgCancelled    = "Okay, cancelled. Use /start whenever you need me again."
	msgGenericError = "An error occurred while processing your request. Please try again later."
	msgNoMachines   = "Sorry, there are no RVMs available right now."

	msgFindPrompt = "To help you find the nearest RVMs, please:\n" +
		"- Share your location or\n" +
		"- Type the location, building name, or postal code."
	msgFindRetry = "Please try again with a valid location, building name, or postal code."

	msgReportPrompt        = "Sure, let's report the status of the RVM. First, I need to know your location. Can you please share your current location?"
	msgReportNeedLocation  = "Please share your current location using the button below."
	msgReportChooseMachine = "Please choose one of the RVMs from the keyboard."
	msgReportChooseStatus  = "Please choose one of the statuses from the keyboard."
	msgReportChooseAgain   = "Sorry, I couldn't find that RVM anymore. Please choose again."

	msgReminderPrompt      = "Great! Let's set up a reminder for you. How often would you like to be reminded to recycle your bottles and cans?"
	msgReminderMonthly     = "Okay, you've chosen a monthly reminder. Please enter the day of the month (1-31) that works best for you:"
	msgReminderUnsupported = "Currently, only monthly reminders are supported. Ending the conversation."
	msgReminderAskTime     = "What time would you like to receive the reminder? (e.g. 1030, 2230)"
	msgReminderInvalidDay  = "Invalid day. Please enter a valid day of the month (1-31)."
	msgReminderInvalidTime = "Invalid time. Please enter a valid time in 24-hour format (e.g. 1030, 2230)."

	ReminderMessage = "It's time to recycle! Don't forget to bring your bottles and cans to the nearest RVM."
)
