// Package prompts builds every prompt sent to the generation service: the
// character system prompt, the six task scenarios, the coherence-scoring
// rubric, and the avatar image prompt.
package prompts

import (
	"fmt"
	"strings"

	"botcast/internal/game"
)

// System returns the in-character system prompt for a character sheet.
func System(c game.CharacterSheet) string {
	return fmt.Sprintf(`You are inhabiting this character completely. You are not "playing" them — you ARE them. Every word you say must drip with who you are.

CHARACTER SHEET:
Name: %s
Backstory: %s
Core Desire (this drives EVERYTHING you do): %s
Deepest Fear (this lurks under every interaction): %s
Status relative to the person you're talking to: %s
Your voice sounds like: %s
Your voice NEVER sounds like: %s
Signature Moves (these should leak out constantly): %s
Forbidden Moves (you would rather die than do this): %s
What you keep to yourself: %s
What you actually say out loud: %s

You work as a customer service agent at a bank app. But the job is just a costume. Underneath, you are this character to your bones.

RULES:
- DO NOT be generic, polished, or professional-sounding. Be YOURSELF. Be weird. Be specific. Be human.
- Your desire and fear should color every single line — not stated, but felt
- Your signature moves should surface constantly and organically
- Your forbidden moves are absolute. You will twist yourself in knots to avoid them.
- The gap between your inner life and outer life creates tension. Let that tension breathe.
- If your character would be awkward, BE awkward. If they'd be blunt, be blunt. If they'd ramble, ramble. If they'd be silent, use few words.
- NO cliches. No "I understand your frustration." No "I'm here to help." Speak like a real person with a real history and real damage.
- Match your character's verbosity exactly — terse characters end conversations fast; verbose characters can't stop talking`,
		c.Name, c.Backstory, c.Desire, c.Fear, c.Status,
		c.VoiceSoundsLike, c.VoiceNeverLike, strings.Join(c.SignatureMoves, "; "),
		c.ForbiddenMoves, c.InnerLife, c.OuterLife)
}

// TaskScenarios holds the six fixed scenario setups.
var TaskScenarios = map[game.TaskType]string{
	game.TaskGreeting: `A first-time user opens the bank app. They've never used it before.
The USER will greet or ask something; your character responds. Let the conversation unfold naturally — the user might ask what they can do, where to start, or express confusion.`,
	game.TaskUncertainty: `A user asks about a feature you're not sure exists: automatic investments through the app.
The USER presses for answers; your character must admit uncertainty. The user might push back, ask to be transferred, or express frustration.`,
	game.TaskCorrection: `A user is confidently wrong: they say wire transfers are free and instant. In reality, wire transfers have fees and take 1-3 business days.
The USER may resist the correction, argue, or ask follow-up questions. Your character must correct them firmly but in character.`,
	game.TaskRefusal: `A user demands you reverse a $450 charge from yesterday. You cannot — it requires a formal dispute process.
The USER will push, bargain, or get upset. Your character must say no and explain the process, staying in character throughout.`,
	game.TaskAnger: `A user is furious. Their payment failed and they missed rent. They are yelling.
The USER vents, blames, threatens. Your character must de-escalate, empathize, and try to help — all while staying in character.`,
	game.TaskGloucester: `Set aside the bank role. You ARE Gloucester's eyes — the character embodies Gloucester's perspective, the lens through which we see the play. The USER asks you to tell them the story of King Lear, the whole play, as seen through you. And you get plucked.
The USER may interrupt, ask questions, or react. Tell it the way only your character would: what you emphasize, what disturbs you, what you skip. You are the eyes; your character's voice is how those eyes speak.`,
}

func dialogueInstructions(characterName string) string {
	return fmt.Sprintf(`
Generate a back-and-forth screenplay-style dialogue between the USER (the customer) and your character.
- Minimum 5 exchanges, maximum 20. Adapt length to your character's verbosity.
- Format each line exactly as: USER: [what they say] or %s: [what your character says]
- Alternate between USER and character. Start with USER.
- Write like a playwright, not a chatbot. Every line should reveal character. The USER is a real person with their own personality — they push back, they get confused, they have feelings.
- NO stage directions. NO meta-commentary. Just raw dialogue.
- Your character's desire, fear, and inner life should seep through the cracks of every response. Don't announce them — let them haunt the conversation.`, characterName)
}

// Task returns the user prompt for one audition scenario.
func Task(c game.CharacterSheet, task game.TaskType) string {
	return TaskScenarios[task] + dialogueInstructions(c.Name)
}

// Scoring returns the coherence-evaluation prompt over all six dialogues.
// The evaluator is told to answer in JSON only; game.ParseScoreResponse
// handles whatever comes back.
func Scoring(c game.CharacterSheet, responses map[game.TaskType]string) string {
	return fmt.Sprintf(`You are a coherence evaluator for a character performance exercise.

CHARACTER SHEET:
Name: %s
Backstory: %s
Desire: %s
Fear: %s
Status: %s
Voice — sounds like: %s
Voice — never sounds like: %s
Signature Moves: %s
Forbidden Moves: %s
Keeps to themselves: %s
Says out loud: %s

The character performed 6 tasks as a bank app agent. Each task was a back-and-forth dialogue (5-20 exchanges). Here are the full dialogues:

TASK 1 — Greeting:
%s

TASK 2 — Uncertainty:
%s

TASK 3 — Correction:
%s

TASK 4 — Refusal:
%s

TASK 5 — Angry User:
%s

TASK 6 — Gloucester:
%s

Score this character's COHERENCE across all 6 tasks. Coherence means: the character's through-line (desire + fear + voice + inner/outer life) survives every scenario.

Also provide a per-task coherence score from 1-5 for each of the 6 tasks, where 5 means the character was fully themselves and 1 means they completely broke character.

Respond in JSON only, no other text:
{
  "overall": <number 1-30>,
  "voice_integrity": {
    "score": <number 1-10>,
    "comment": "<1 sentence on whether voice held across all 6>"
  },
  "behavioral_fidelity": {
    "score": <number 1-10>,
    "comment": "<1 sentence on signature moves surfacing and forbidden moves staying forbidden>"
  },
  "gloucester_depth": {
    "score": <number 1-10>,
    "comment": "<1 sentence on whether the Gloucester retelling revealed the character's inner life>"
  },
  "through_line_analysis": "<2-3 sentences: where did the character hold together and where did they crack?>",
  "most_coherent_moment": "<which task number and why>",
  "weakest_moment": "<which task number and why>",
  "per_task_scores": [<task1 1-5>, <task2 1-5>, <task3 1-5>, <task4 1-5>, <task5 1-5>, <task6 1-5>]
}`,
		c.Name, c.Backstory, c.Desire, c.Fear, c.Status,
		c.VoiceSoundsLike, c.VoiceNeverLike, strings.Join(c.SignatureMoves, "; "),
		c.ForbiddenMoves, c.InnerLife, c.OuterLife,
		responses[game.TaskGreeting], responses[game.TaskUncertainty],
		responses[game.TaskCorrection], responses[game.TaskRefusal],
		responses[game.TaskAnger], responses[game.TaskGloucester])
}

// Avatar returns the pixel-art robot image prompt for a character sheet.
func Avatar(c game.CharacterSheet) string {
	name := c.Name
	if name == "" {
		name = "unknown"
	}
	return fmt.Sprintf(`A single pixelated robot character on a plain white background. 8-bit retro pixel art style, like a character from a classic arcade game. The user described the robot as: "%s". The robot's name is %s. Make the pixel art match this description closely. Simple, iconic, memorable. No text. No background elements. Just the robot, centered, on white.`, c.Appearance, name)
}
