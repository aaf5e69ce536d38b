package bot

// Formatted replies are MarkdownV2 and go through the delivery pipeline.
const (
	welcomeText = "🔒 *Welcome to GhostMail Bot\\!*\n\n" +
		"I can help you create temporary email addresses for privacy and security\\.\n\n" +
		"*Available Commands:*\n" +
		"/create \\- Create a new temporary email\n" +
		"/messages \\- Check your inbox\n" +
		"/domains \\- View available domains\n" +
		"/custom \\- Pick your own address\n" +
		"/delete \\- Delete current email\n" +
		"/help \\- Show this help message\n\n" +
		"Your temporary emails are automatically deleted after a certain time period to protect your privacy\\.\n\n" +
		"Ready to get started? Use /create to generate your first temporary email\\! 📧"

	helpText = "🔒 *GhostMail Bot Help*\n\n" +
		"*Commands:*\n" +
		"/start \\- Welcome message and main menu\n" +
		"/create \\- Create a new temporary email\n" +
		"/messages \\- Check your inbox\n" +
		"/domains \\- View available domains\n" +
		"/custom _username_ _domain_ \\- Switch to an address of your choice\n" +
		"/delete \\- Delete current email\n" +
		"/help \\- Show this help\n\n" +
		"*How it works:*\n" +
		"1\\. Use /create to generate a temporary email\n" +
		"2\\. Use the email for registrations or services\n" +
		"3\\. Use /messages to check received emails\n" +
		"4\\. Emails auto\\-delete after expiration time\n\n" +
		"*Privacy:* All temporary emails are automatically deleted to protect your privacy\\.\n\n" +
		"Need more help? Just type any command to get started\\! 🚀"

	emailDeletedText = "✅ *Email Deleted Successfully\\!*\n\n" +
		"Your previous email has been deleted\\. Use /create to generate a new temporary email\\."

	messageDeletedText = "✅ Message deleted successfully\\!"

	expiredFormat = "⏰ *Your temporary email has expired*\n\n" +
		"%s has been deleted\\. Use /create to get a new one\\."
)

// Short notices are sent once, unformatted.
const (
	noticeCreating       = "⏳ Creating your temporary email..."
	noticeChecking       = "📬 Checking your messages..."
	noticeFetchDomains   = "🌐 Fetching available domains..."
	noticeDeletingEmail  = "🗑️ Deleting your current email..."
	noticeChanging       = "✏️ Switching your email address..."
	noticeLoadingMessage = "📖 Loading full message..."
	noticeDeletingMsg    = "🗑️ Deleting message..."

	errCreateFailed   = "❌ Failed to create email. Please try again."
	errChangeFailed   = "❌ Failed to change email. Please check the username and domain and try again."
	errFetchFailed    = "❌ Failed to fetch messages. Please try again."
	errDomainsFailed  = "❌ Failed to fetch domains. Please try again."
	errDeleteFailed   = "❌ Failed to delete email. Please try again."
	errLoadFailed     = "❌ Failed to load full message. It may have been deleted."
	errDeleteMsgFail  = "❌ Failed to delete message."
	errNoSession      = "❌ No active email session. Use /create to create an email first."
	errNoSessionShort = "❌ No active email session."
	errNothingDelete  = "❌ No active email session to delete."
	errUnknownCommand = "🤔 Unknown command. Use /help to see what I can do."
	customUsage       = "Usage: /custom <username> <domain>\nUse /domains to see the available domains."
	rateLimitNotice   = "⏳ Slow down! You are sending requests too fast. Please wait a moment."
)
