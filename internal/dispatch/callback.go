package dispatch

import "tg_monitor_bot/internal/reply"

// CallbackAck is shown to the user when a callback query is acknowledged.
const CallbackAck = "Pilihan diterima"

const unknownChoice = "Pilihan tidak dikenali."

var callbackResponses = map[string]string{
	reply.CallbackHome:     "Anda telah memilih Beranda.",
	reply.CallbackSearch:   "Anda memilih untuk mencari sesuatu.",
	reply.CallbackNavigate: "Anda memilih Navigasi.",
	reply.CallbackClose:    "Anda memilih untuk keluar.",
}

// CallbackResponse maps inline menu callback data to the reply text.
func CallbackResponse(data string) string {
	if text, ok := callbackResponses[data]; ok {
		return text
	}
	return unknownChoice
}
