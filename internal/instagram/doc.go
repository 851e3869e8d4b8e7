// Package instagram fetches the comments of an Instagram post or reel.
//
// Requests go to the public web endpoints with the web app id header. A
// Netscape cookies file (as exported by browser extensions or yt-dlp) supplies
// the session; without one Instagram usually serves only a few comments or
// demands a login. Post metadata is read from the Open Graph tags of the post
// page. A fetch that has already collected comments keeps them when a later
// page fails.
package instagram
